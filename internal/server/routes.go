package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Retro snapshot download and admin reset
	s.echo.GET("/retro", s.handleGetRetro)
	s.echo.POST("/retro", s.handleResetRetro)

	// Real-time channel
	s.echo.GET("/ws/retro", s.handleWebSocket)

	// Bundled UI assets
	if s.config.PublicDir != "" {
		s.echo.Static("/", s.config.PublicDir)
	}
}
