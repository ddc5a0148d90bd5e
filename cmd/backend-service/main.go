package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	frontendsvc "github.com/fllarpy/frontend-service"
	"github.com/fllarpy/frontend-service/infrastructure/storage/bookstore"
	"github.com/fllarpy/frontend-service/internal/ports/books"
	"github.com/fllarpy/frontend-service/internal/ports/http_reporter"
	"github.com/fllarpy/frontend-service/internal/ports/httperr"
	"github.com/fllarpy/frontend-service/internal/ports/router"
	"github.com/fllarpy/frontend-service/pkg/config"
	"github.com/fllarpy/frontend-service/pkg/logging"
)

func main() {
	cfg, err := config.Load(".", config.BackendDefaults())
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("Failed to create logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Book service stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frontendsvc.InstallErrorHandler(logger)

	telemetry, err := frontendsvc.NewTelemetry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown incomplete", zap.Error(err))
		}
	}()

	store, err := bookstore.Open(ctx, cfg.Store.DSN, telemetry.TracerProvider(), telemetry.Metrics.MeterProvider())
	if err != nil {
		return err
	}
	defer store.Close()

	handler := books.NewHandler(store, telemetry.Metrics, telemetry.TracerProvider(), logger)
	app := router.New(telemetry.TracerProvider(),
		router.Route{Path: "/books", Handler: httperr.Handle(logger, handler.List)},
	)

	logger.Info("Starting book service",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.String("metrics", cfg.Metrics.ListenAddr+cfg.Metrics.Path),
	)
	return frontendsvc.Serve(ctx, logger, cfg, app, http_reporter.NewHandler(telemetry.Metrics.Gatherer(), logger))
}
