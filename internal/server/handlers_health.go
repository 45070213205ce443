package server

import (
	"github.com/labstack/echo/v4"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := s.clock.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	// The hub actor is the only dependency that can wedge; a timed-out
	// command reports -1.
	if s.hub.ClientCount() < 0 {
		return c.JSON(503, map[string]string{
			"status":       "unhealthy",
			"failed_check": "hub",
		})
	}
	return c.JSON(200, map[string]string{"status": "ready"})
}
