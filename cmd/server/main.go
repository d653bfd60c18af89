// Package main is the entry point for the GitMap server. It loads
// configuration, opens the storage backend, assembles the server, and runs
// it until interrupted. Everything else lives in internal/ packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/gitmap/internal/config"
	"github.com/sakif/gitmap/internal/server"
	"github.com/sakif/gitmap/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.UsingDefaultSecret() {
		logger.Warn("JWT_SECRET not set, using the insecure documented default; " +
			"anyone with the source can forge tokens")
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("opening storage backend",
			slog.String("backend", cfg.StorageBackend),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("closing storage backend", slog.Any("error", err))
		}
	}()

	logger.Info("storage ready",
		slog.String("backend", cfg.StorageBackend),
		slog.Bool("demoMode", cfg.DemoMode),
	)

	srv, err := server.New(cfg, st, logger)
	if err != nil {
		logger.Error("assembling server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
