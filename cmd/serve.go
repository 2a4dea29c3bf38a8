package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/elorank/internal/adapters/http/api"
	"github.com/okian/elorank/internal/adapters/http/swagger"
	service "github.com/okian/elorank/internal/app"
	"github.com/okian/elorank/pkg/logger"
	"github.com/okian/elorank/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve <dir>",
		Short: "Serve the ranking session over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, area, err := c.openSession(ctx, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = area.Close() }()

			svc := service.New(session,
				service.WithQueueSize(c.cfg.QueueSize),
				service.WithDedupeSize(c.cfg.DedupeSize),
				service.WithLogger(logger.Get().Named("service")),
			)
			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer svc.Stop()

			ln, err := net.Listen("tcp", c.cfg.Addr)
			if err != nil {
				return err
			}
			return serve(ctx, ln, svc, c.cfg.MaxLeaderboardLimit)
		},
	}
}

// serve runs the HTTP API on ln until ctx is done, then shuts it down.
func serve(ctx context.Context, ln net.Listener, svc *service.Service, maxLimit int) error {
	log := logger.Get()

	mux := http.NewServeMux()
	api.NewServer(svc, maxLimit).Register(ctx, mux)
	swagger.Register(ctx, mux)

	srv := &http.Server{
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
			return err
		}
		log.Info(shutdownCtx, "server stopped")
		return nil
	})

	return g.Wait()
}

// startServiceMetricsUpdater refreshes queue and item gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	// GetStats refreshes the item gauge itself.
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
}
