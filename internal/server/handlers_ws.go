package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // single shared board, no origin restrictions
	},
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	sessionID := uuid.New()

	if err := s.hub.Register(sessionID, conn); err != nil {
		slog.Warn("Failed to register session", "session_id", sessionID.String(), "error", err)
		_ = conn.Close()
		return nil
	}

	s.app.Connect(sessionID)

	// Read pump — blocks until the connection closes or errors.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.app.HandleMessage(sessionID, raw)
	}

	s.hub.Unregister(sessionID)
	s.app.Disconnect(sessionID)

	return nil //nolint:nilerr // ReadMessage err is block-scoped; outer err is nil
}
