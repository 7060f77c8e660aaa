package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"TwQuant/internal/domain/models"
	"TwQuant/internal/usecase"
	xhttp "TwQuant/pkg/http"
	xlogger "TwQuant/pkg/logger"
)

// BacktestHandler serves single backtests, parameter sweeps and the
// sweep progress stream.
type BacktestHandler struct {
	logger   *xlogger.Logger
	backtest *usecase.BacktestUseCase
	sweep    *usecase.SweepUseCase
	hub      *usecase.SweepHub
}

func NewBacktestHandler(logger *xlogger.Logger, bt *usecase.BacktestUseCase, sweep *usecase.SweepUseCase, hub *usecase.SweepHub) *BacktestHandler {
	return &BacktestHandler{logger: logger, backtest: bt, sweep: sweep, hub: hub}
}

func (h *BacktestHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/backtest")
	g.GET("/run", h.Run)
	g.POST("/run", h.Run)
	g.POST("/sweep", h.SubmitSweep)
	g.GET("/sweep/:id", h.SweepStatus)
	g.GET("/sweep/stream", h.SweepStream)
}

func (h *BacktestHandler) Run(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.backtest.Run(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("backtest usecase error",
			xlogger.String("symbol", req.Symbol),
			xlogger.String("strategy", req.Strategy),
			xlogger.Error(err))
		return appError(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *BacktestHandler) SubmitSweep(c echo.Context) error {
	req := &models.SweepRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id, err := h.sweep.Submit(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("sweep submit error", xlogger.Error(err))
		return appError(c, err)
	}
	return xhttp.CreatedResponse(c, echo.Map{"id": id})
}

func (h *BacktestHandler) SweepStatus(c echo.Context) error {
	id := c.Param("id")
	p, ok := h.sweep.Progress(id)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown sweep %q", id))
	}
	return xhttp.SuccessResponse(c, p)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const streamPingInterval = 30 * time.Second

// SweepStream upgrades to a WebSocket and pushes progress updates for
// one sweep until it completes or the client hangs up.
func (h *BacktestHandler) SweepStream(c echo.Context) error {
	id := c.QueryParam("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "id required")
	}

	updates, cancel := h.hub.Subscribe(id)
	defer cancel()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("sweep stream upgrade failed", xlogger.Error(err))
		return err
	}
	defer conn.Close()

	// Send the last known state first so late subscribers are not blind
	// until the next combination finishes.
	if p, ok := h.sweep.Progress(id); ok {
		if err := conn.WriteJSON(p); err != nil {
			return nil
		}
		if p.Completed || p.Error != "" {
			return nil
		}
	}

	// Reader only detects the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return nil
		case p, ok := <-updates:
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(p); err != nil {
				return nil
			}
			if p.Completed || p.Error != "" {
				return nil
			}
		case <-time.After(streamPingInterval):
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return nil
			}
		}
	}
}
