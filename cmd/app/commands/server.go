package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/sobebarali/useHely-sub006/internal/app"
	"github.com/sobebarali/useHely-sub006/internal/config"
)

// shutdownTimeout bounds how long in-flight requests may take to drain.
const shutdownTimeout = 15 * time.Second

// RunServer serves the API, the optional metrics listener and the key registry
// refresher until SIGINT, SIGTERM or the first listener failure.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	registry, err := container.KeyRegistry()
	if err != nil {
		return fmt.Errorf("failed to initialize key registry: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// An empty registry still serves; /ready reports it until bootstrap-key runs.
	if err := registry.Refresh(ctx); err != nil {
		logger.Warn("initial key registry load failed", slog.Any("error", err))
	}

	logger.Info("starting server", slog.String("version", version))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(gctx); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		if err := registry.Run(gctx, cfg.KeyRegistryRefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("key registry refresher stopped", slog.Any("error", err))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", slog.Any("cause", context.Cause(gctx)))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		errs := []error{server.Shutdown(shutdownCtx)}
		if metricsServer != nil {
			errs = append(errs, metricsServer.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
