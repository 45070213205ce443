package server

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/spuklo/retromat/internal/snapshot"
)

// handleGetRetro serves the current retro as a downloadable JSON document,
// named after its snapshot file.
func (s *Server) handleGetRetro(c echo.Context) error {
	retro := s.app.CurrentRetro()
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", snapshot.Filename(retro)))
	return c.JSONPretty(200, retro, "  ")
}

// handleResetRetro replaces the retro wholesale. Gated by the numeric admin
// code printed to the operator log at startup.
func (s *Server) handleResetRetro(c echo.Context) error {
	code, err := strconv.Atoi(c.FormValue("code"))
	if err != nil || code != s.adminCode {
		slog.Warn("Retro reset rejected: invalid admin code", "remote", c.RealIP())
		return c.String(400, "Invalid code. Better luck next time")
	}

	fresh := s.app.Reset()
	return c.JSON(200, fresh)
}
