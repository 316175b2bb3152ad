package app

import (
	"context"
	"net/http"

	"github.com/shashiranjanraj/ordersvc/app/controllers"
	"github.com/shashiranjanraj/ordersvc/app/routes"
	"github.com/shashiranjanraj/ordersvc/config"
	"github.com/shashiranjanraj/ordersvc/internal/kernel"
	"github.com/shashiranjanraj/ordersvc/internal/server"
	"github.com/shashiranjanraj/ordersvc/pkg/database"
	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/middleware"
	"github.com/shashiranjanraj/ordersvc/pkg/router"
)

// Router builds the full HTTP router over the booted services.
func (a *App) Router(ctx context.Context) *router.Router {
	opts := kernel.Options{
		CORSOrigins:    config.CORSOrigins(),
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
		TrustedProxies: config.TrustedProxies(),
	}

	return kernel.New(ctx, opts, func(r *router.Router) {
		routes.RegisterAPI(r, routes.API{
			Auth:         controllers.NewAuthController(a.AuthService),
			Orders:       controllers.NewOrderController(a.OrderService),
			Authenticate: middleware.Authenticate(a.Tokens, a.AuthService),
		})
	})
}

// Routes lists the API without booting any backend.
func Routes() []router.Route {
	r := kernel.New(context.Background(), kernel.Options{}, func(r *router.Router) {
		routes.RegisterAPI(r, routes.API{
			Auth:         controllers.NewAuthController(nil),
			Orders:       controllers.NewOrderController(nil),
			Authenticate: func(next http.Handler) http.Handler { return next },
		})
	})
	return r.Routes()
}

// Serve runs the HTTP and gRPC servers until ctx is cancelled. With the
// memory queue driver the worker runs in this process too, since no other
// process can reach its queues.
func (a *App) Serve(ctx context.Context) error {
	opts := server.Options{
		Port:     config.AppPort(),
		Handler:  a.Router(ctx).Handler(),
		GRPCPort: config.GRPCPort(),
		Probe:    func(ctx context.Context) error { return database.Ping(ctx, a.DB) },
	}

	if config.QueueDriver() == "memory" {
		logger.Info("memory queue driver: running worker in-process")
		w := a.Worker(nil)
		opts.Background = append(opts.Background, func(ctx context.Context) error {
			return w.Run(ctx, config.QueueWorkers())
		})
	}

	sched, err := a.Scheduler()
	if err != nil {
		return err
	}
	opts.Background = append(opts.Background, func(ctx context.Context) error {
		sched.Start(ctx)
		return nil
	})

	return server.Run(ctx, opts)
}
