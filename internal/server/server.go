// Package server exposes the HTTP and WebSocket surface: the real-time retro
// channel, the admin reset endpoint, the retro download and observability
// endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/spuklo/retromat/internal/app"
	"github.com/spuklo/retromat/internal/config"
)

// hub is the slice of the broadcast hub the server needs.
type hub interface {
	Register(sessionID uuid.UUID, conn *websocket.Conn) error
	Unregister(sessionID uuid.UUID)
	ClientCount() int
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	app       *app.Service
	hub       hub
	clock     clockwork.Clock
	adminCode int
	startTime time.Time
}

// NewServer builds the echo application. adminCode gates the reset endpoint;
// it is generated once at process start and printed to the operator log.
func NewServer(cfg *config.Config, svc *app.Service, h hub, clock clockwork.Clock, adminCode int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		app:       svc,
		hub:       h,
		clock:     clock,
		adminCode: adminCode,
		startTime: clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the echo handler for tests.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}
