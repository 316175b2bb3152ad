// Package server runs the HTTP listener, the optional gRPC health server
// and any in-process background loops until the context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/ordersvc/pkg/grpc"
	"github.com/shashiranjanraj/ordersvc/pkg/logger"
)

const ShutdownTimeout = 15 * time.Second

type Options struct {
	Port    string
	Handler http.Handler
	// GRPCPort enables the gRPC health server when non-empty.
	GRPCPort string
	Probe    grpc.Probe
	// Background loops run alongside the listeners and must return when
	// their context is done.
	Background []func(ctx context.Context) error
}

// Run blocks until ctx is cancelled or a component fails, then drains
// in-flight requests for up to ShutdownTimeout.
func Run(ctx context.Context, opts Options) error {
	srv := &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           opts.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var gs *grpc.Server
	if opts.GRPCPort != "" {
		var err error
		if gs, err = grpc.Start(ctx, opts.GRPCPort, opts.Probe); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		gs.Stop()

		logger.Info("HTTP server shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	for _, loop := range opts.Background {
		loop := loop
		g.Go(func() error { return loop(ctx) })
	}

	return g.Wait()
}
