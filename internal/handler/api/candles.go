package api

import (
	"strings"

	"github.com/labstack/echo/v4"

	"TwQuant/internal/domain/models"
	"TwQuant/internal/usecase"
	xhttp "TwQuant/pkg/http"
	xlogger "TwQuant/pkg/logger"
	"TwQuant/pkg/util"
)

// CandlesHandler serves daily bars with indicator overlays.
type CandlesHandler struct {
	logger  *xlogger.Logger
	candles *usecase.CandlesUseCase
}

func NewCandlesHandler(logger *xlogger.Logger, candles *usecase.CandlesUseCase) *CandlesHandler {
	return &CandlesHandler{logger: logger, candles: candles}
}

func (h *CandlesHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/candles", h.Candles)
}

func (h *CandlesHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p := usecase.GetCandlesParams{Symbol: req.Symbol, N: req.N}
	if req.From != "" {
		t, ok := util.ParseDate(req.From)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("bad from date %q", req.From))
		}
		p.From = t
	}
	if req.To != "" {
		t, ok := util.ParseDate(req.To)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("bad to date %q", req.To))
		}
		p.To = t
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.From.After(p.To) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from is after to"))
	}
	if raw := c.QueryParam("indicators"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				p.Indicators = append(p.Indicators, name)
			}
		}
	}

	res, err := h.candles.GetCandles(c.Request().Context(), p)
	if err != nil {
		h.logger.Error("candles usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return appError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
