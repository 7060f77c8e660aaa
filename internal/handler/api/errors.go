package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"TwQuant/internal/backtest"
	domrepo "TwQuant/internal/domain/repository"
	"TwQuant/internal/indicator"
	xhttp "TwQuant/pkg/http"
)

// appError maps domain errors onto HTTP statuses: bad parameters are
// 400, too little history is 422, a session with no ingested rows is
// 404. Anything else falls through to 500.
func appError(c echo.Context, err error) error {
	var insErr *backtest.InsufficientDataError
	var cfgErr *backtest.ConfigError
	switch {
	case errors.As(err, &insErr):
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError(insErr.Error()).
			WithParam("required", insErr.Required).
			WithParam("available", insErr.Available))
	case errors.As(err, &cfgErr):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(cfgErr.Error()))
	case errors.Is(err, indicator.ErrBadName):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, domrepo.ErrDataUnavailable):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no data for the requested session"))
	}
	return xhttp.AppErrorResponse(c, err)
}
