// Command server is the entry point for the Tandem backend API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tandem/internal/config"
	"tandem/internal/middleware"
	"tandem/internal/observability"
	"tandem/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, cfg.LogLevel)
	logger := middleware.Logger

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "tandem-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		logger.Fatal("failed to initialise tracing", zap.Error(err))
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, srv, 10*time.Second, shutdownTracing); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	_ = logger.Sync()
}

type lifecycle interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is done or Start returns, then shuts srv down and
// runs cleanup. It returns only after shutdown and cleanup have finished.
func serve(ctx context.Context, srv lifecycle, timeout time.Duration, cleanup ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()

		logger := middleware.Logger
		logger.Info("shutting down server")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeout)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
		for _, fn := range cleanup {
			if err := fn(shutdownCtx); err != nil {
				logger.Error("shutdown cleanup error", zap.Error(err))
			}
		}
	}()

	err := srv.Start()
	cancel()
	<-done
	return err
}
