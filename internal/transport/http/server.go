// Package http provides the HTTP server for the run driver API.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/service"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/tools"
	v1 "github.com/TimeTravelerFromNow/openai-helpers/internal/transport/http/v1"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/ws"
)

// NewServer creates and configures the HTTP server. stream may be nil, in
// which case the websocket route is not mounted.
func NewServer(svc *service.Service, registry *tools.Registry, stream *ws.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, registry)
	v1Handler.RegisterRoutes(e)

	if stream != nil {
		e.GET("/v1/threads/:thread_id/stream", stream.HandleStream)
	}

	return e
}
