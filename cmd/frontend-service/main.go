package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	frontendsvc "github.com/fllarpy/frontend-service"
	"github.com/fllarpy/frontend-service/internal/adapters/apmhttp"
	"github.com/fllarpy/frontend-service/internal/ports/frontend"
	"github.com/fllarpy/frontend-service/internal/ports/http_reporter"
	"github.com/fllarpy/frontend-service/internal/ports/httperr"
	"github.com/fllarpy/frontend-service/internal/ports/router"
	"github.com/fllarpy/frontend-service/pkg/config"
	"github.com/fllarpy/frontend-service/pkg/logging"
)

func main() {
	cfg, err := config.Load(".", config.FrontendDefaults())
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("Failed to create logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Frontend service stopped", zap.Error(err))
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
		if snapshot, err := telemetry.Metrics.Snapshot(); err == nil {
			logger.Info("Final request metrics",
				zap.Uint64("total_requests", snapshot.TotalRequests),
				zap.Uint64("observations", snapshot.TotalObservations()),
			)
		}
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown incomplete", zap.Error(err))
		}
	}()

	client := apmhttp.NewClient(nil, telemetry.TracerProvider())
	handler := frontend.NewHandler(client, cfg.Upstream.URL, telemetry.Metrics, logger)

	app := router.New(telemetry.TracerProvider(),
		router.Route{Path: "/", Handler: httperr.Handle(logger, handler.Forward)},
	)

	logger.Info("Starting frontend service",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.String("upstream", cfg.Upstream.URL),
		zap.String("metrics", cfg.Metrics.ListenAddr+cfg.Metrics.Path),
	)
	return frontendsvc.Serve(ctx, logger, cfg, app, http_reporter.NewHandler(telemetry.Metrics.Gatherer(), logger))
}
