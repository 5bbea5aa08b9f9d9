package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/hydro-sonify/internal/adapter/http"
	"github.com/couchcryptid/hydro-sonify/internal/bootstrap"
	"github.com/couchcryptid/hydro-sonify/internal/config"
	"github.com/couchcryptid/hydro-sonify/internal/observability"
	"github.com/couchcryptid/hydro-sonify/internal/pipeline"
	"github.com/jonboulle/clockwork"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register MIDI driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	eng, err := bootstrap.NewEngine(cfg, clockwork.NewRealClock(), logger, metrics)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	startup := pipeline.New(eng, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, bootstrap.Gate{Engine: eng, Startup: startup}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start transport dispatch.
	go func() {
		if err := eng.Run(ctx); err != nil {
			logger.Error("transport error", "error", err)
		}
	}()

	// Load dataset and samples.
	go func() {
		if err := startup.Run(ctx); err != nil {
			logger.Error("startup failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := eng.Close(); err != nil {
		logger.Error("engine close error", "error", err)
	}

	logger.Info("shutdown complete")
}
