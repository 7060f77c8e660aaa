package api

import (
	"github.com/labstack/echo/v4"

	xhttp "TwQuant/pkg/http"
)

// Routes bundles the API handlers into one route registrar.
type Routes []xhttp.Handler

func (rs Routes) RegisterRoutes(e *echo.Echo) {
	for _, r := range rs {
		r.RegisterRoutes(e)
	}
}

func NewRoutes(bt *BacktestHandler, market *MarketHandler, candles *CandlesHandler) xhttp.Handler {
	return Routes{bt, market, candles}
}
