package frontendsvc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fllarpy/frontend-service/pkg/config"
)

// Serve runs app on cfg.Server.ListenAddr and metrics on
// cfg.Metrics.ListenAddr under cfg.Metrics.Path until ctx is cancelled or a
// listener fails. Both servers are then shut down within
// cfg.Server.ShutdownTimeout.
func Serve(ctx context.Context, logger *zap.Logger, cfg *config.Config, app http.Handler, metrics http.Handler) error {
	appLn, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.ListenAddr, err)
	}
	metricsLn, err := net.Listen("tcp", cfg.Metrics.ListenAddr)
	if err != nil {
		appLn.Close()
		return fmt.Errorf("listen on %s: %w", cfg.Metrics.ListenAddr, err)
	}
	return serve(ctx, logger, cfg, appLn, metricsLn, app, metrics)
}

func serve(ctx context.Context, logger *zap.Logger, cfg *config.Config, appLn, metricsLn net.Listener, app, metrics http.Handler) error {
	metricsMux := http.NewServeMux()
	metricsMux.Handle(cfg.Metrics.Path, metrics)

	servers := []struct {
		name string
		srv  *http.Server
		ln   net.Listener
	}{
		{"service", &http.Server{Handler: app, ErrorLog: zap.NewStdLog(logger.Named("http"))}, appLn},
		{"metrics", &http.Server{Handler: metricsMux, ErrorLog: zap.NewStdLog(logger.Named("metrics"))}, metricsLn},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		s := s
		g.Go(func() error {
			logger.Info("Listening",
				zap.String("server", s.name),
				zap.String("addr", s.ln.Addr().String()),
			)
			if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", s.name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		var err error
		for _, s := range servers {
			if shutdownErr := s.srv.Shutdown(shutdownCtx); shutdownErr != nil {
				err = multierr.Append(err, fmt.Errorf("shutdown %s server: %w", s.name, shutdownErr))
			}
		}
		return err
	})

	return g.Wait()
}
