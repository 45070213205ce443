package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/spuklo/retromat/internal/app"
	"github.com/spuklo/retromat/internal/broadcast"
	"github.com/spuklo/retromat/internal/config"
	"github.com/spuklo/retromat/internal/domain"
	"github.com/spuklo/retromat/internal/logging"
	"github.com/spuklo/retromat/internal/server"
	"github.com/spuklo/retromat/internal/snapshot"
	"github.com/spuklo/retromat/internal/store"
	"github.com/spuklo/retromat/internal/version"
)

const maxClients = 256

const banner = `
    _____  ______ _______ _____   ____  __  __       _______
   |  __ \|  ____|__   __|  __ \ / __ \|  \/  |   /\|__   __|
   | |__) | |__     | |  | |__) | |  | | \  / |  /  \  | |
   |  _  /|  __|    | |  |  _  /| |  | | |\/| | / /\ \ | |
   | | \ \| |____   | |  | | \ \| |__| | |  | |/ ____ \| |
   |_|  \_\______|  |_|  |_|  \_\____/ |_|  |_/_/    \_\_|
`

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(srv *server.Server, hub *broadcast.Hub, writer *snapshot.Writer, st *store.Store, snapshots *snapshot.Store) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		writer.Stop()

		// One final synchronous save so the last mutation is on disk.
		retro := st.Current()
		if err := snapshots.Save(retro); err != nil {
			slog.Error("Final snapshot save failed", "retro_id", retro.ID, "error", err)
		}
		slog.Info("Retromat is shutting down", "retro_id", retro.ID, "cards", len(retro.Cards))

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	adminCode := domain.Random6Digits()

	snapshots := snapshot.NewStore(cfg.DataDir, clock)
	st := store.New(snapshots.LoadOrCreate(), clock)
	writer := snapshot.NewWriter(snapshots)

	hub := broadcast.NewHub(clock, broadcast.DefaultHeartbeatInterval, maxClients)
	svc := app.NewService(st, hub, writer, domain.NewCardIDSource(clock), version.Get().Version)
	srv := server.NewServer(cfg, svc, hub, clock, adminCode)

	done := runGracefulShutdown(srv, hub, writer, st, snapshots)

	slog.Info(banner)
	slog.Info("Retromat is listening", "port", cfg.Port, "env", cfg.AppEnv, "version", version.Get().Version)
	slog.Info("Admin code", "code", adminCode)
	slog.Info("Created retro", "retro_id", st.Current().ID)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
