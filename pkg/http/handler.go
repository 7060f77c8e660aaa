package http

import "github.com/labstack/echo/v4"

// Handler registers routes on the Echo instance. The server accepts a
// single Handler; compose several with a fan-out slice when needed.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
