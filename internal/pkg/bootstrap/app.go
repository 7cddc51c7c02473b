package bootstrap

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"brigade/internal/pkg/logger"
	"brigade/internal/pkg/tracing"
)

// AppInfo describes one service to run: its HTTP surface and any long-lived
// background runners (Kafka consumers).
type AppInfo struct {
	ServiceName      string
	HTTPAddr         string
	JaegerEndpoint   string
	RegisterHandlers func(mux *http.ServeMux)
	Runners          []func(ctx context.Context) error
	OnShutdown       []func(ctx context.Context) error
}

// Run wires the common startup and graceful-shutdown sequence shared by both
// services: tracing, HTTP server, runners, then LIFO cleanup on SIGINT/SIGTERM.
func Run(info AppInfo) error {
	logger.Init(info.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracerProvider(info.ServiceName, info.JaegerEndpoint)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(mux)
	}
	server := &http.Server{Addr: info.HTTPAddr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Ctx(gctx).Info().Str("addr", info.HTTPAddr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	for _, runner := range info.Runners {
		runner := runner
		g.Go(func() error { return runner(gctx) })
	}

	<-gctx.Done()
	logger.Ctx(context.Background()).Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, fn := range info.OnShutdown {
		if err := fn(shutdownCtx); err != nil {
			logger.Ctx(shutdownCtx).Error().Err(err).Msg("shutdown hook failed")
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Ctx(shutdownCtx).Error().Err(err).Msg("http server shutdown failed")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Ctx(shutdownCtx).Error().Err(err).Msg("tracer provider shutdown failed")
	}

	err = g.Wait()
	logger.Ctx(context.Background()).Info().Msg("service stopped")
	return err
}
