package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"TwQuant/internal/domain/models"
	"TwQuant/internal/usecase"
	xhttp "TwQuant/pkg/http"
	xlogger "TwQuant/pkg/logger"
	"TwQuant/pkg/util"
)

// MarketHandler serves the daily market datasets.
type MarketHandler struct {
	logger *xlogger.Logger
	market *usecase.MarketUseCase
}

func NewMarketHandler(logger *xlogger.Logger, market *usecase.MarketUseCase) *MarketHandler {
	return &MarketHandler{logger: logger, market: market}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/market")
	g.GET("/top-net-buy", h.TopNetBuy)
	g.GET("/common-buy", h.CommonBuy)
	g.GET("/summary", h.Summary)
	g.GET("/turnover", h.Turnover)
	g.GET("/futures", h.FuturesOI)
	g.GET("/fx", h.Fx)
}

// sessionDate parses the optional date query param. Zero means the
// latest ingested session.
func sessionDate(c echo.Context) (time.Time, *xhttp.AppError) {
	raw := c.QueryParam("date")
	if raw == "" {
		return time.Time{}, nil
	}
	t, ok := util.ParseDate(raw)
	if !ok {
		return time.Time{}, xhttp.BadRequestErrorf("bad date %q", raw)
	}
	return t, nil
}

func (h *MarketHandler) TopNetBuy(c echo.Context) error {
	req := &models.FlowsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date, aerr := sessionDate(c)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	inst := usecase.Institution(c.QueryParam("inst"))
	if inst == "" {
		inst = usecase.InstitutionForeign
	}
	if inst != usecase.InstitutionForeign && inst != usecase.InstitutionTrust {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("bad inst %q", inst))
	}

	buy, sell, session, err := h.market.TopNetBuy(c.Request().Context(), inst, date, req.N)
	if err != nil {
		h.logger.Error("top net buy error", xlogger.String("inst", string(inst)), xlogger.Error(err))
		return appError(c, err)
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"session": session.Format("2006-01-02"),
		"inst":    inst,
		"buy":     buy,
		"sell":    sell,
	})
}

func (h *MarketHandler) CommonBuy(c echo.Context) error {
	date, aerr := sessionDate(c)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	rows, session, err := h.market.CommonBuy(c.Request().Context(), date)
	if err != nil {
		h.logger.Error("common buy error", xlogger.Error(err))
		return appError(c, err)
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"session": session.Format("2006-01-02"),
		"rows":    rows,
	})
}

func (h *MarketHandler) Summary(c echo.Context) error {
	date, aerr := sessionDate(c)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	rows, session, err := h.market.Summary(c.Request().Context(), date)
	if err != nil {
		h.logger.Error("summary error", xlogger.Error(err))
		return appError(c, err)
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"session": session.Format("2006-01-02"),
		"rows":    rows,
	})
}

func (h *MarketHandler) Turnover(c echo.Context) error {
	date, aerr := sessionDate(c)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	days := util.ParseIntDefault(c.QueryParam("days"), 30)
	if days < 1 || days > 365 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("bad days %d", days))
	}

	rows, err := h.market.Turnover(c.Request().Context(), date, days)
	if err != nil {
		h.logger.Error("turnover error", xlogger.Error(err))
		return appError(c, err)
	}
	return xhttp.SuccessResponse(c, echo.Map{"rows": rows})
}

func (h *MarketHandler) FuturesOI(c echo.Context) error {
	date, aerr := sessionDate(c)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	rows, session, err := h.market.FuturesOI(c.Request().Context(), date)
	if err != nil {
		h.logger.Error("futures oi error", xlogger.Error(err))
		return appError(c, err)
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"session": session.Format("2006-01-02"),
		"rows":    rows,
	})
}

func (h *MarketHandler) Fx(c echo.Context) error {
	date, aerr := sessionDate(c)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	rate, err := h.market.Fx(c.Request().Context(), date)
	if err != nil {
		h.logger.Error("fx error", xlogger.Error(err))
		return appError(c, err)
	}
	return xhttp.SuccessResponse(c, rate)
}
