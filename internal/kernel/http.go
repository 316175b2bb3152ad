// Package kernel builds the HTTP handler: global middleware, operational
// endpoints and the JSON fallbacks, with the application routes on top.
package kernel

import (
	"context"
	"net/http"

	"github.com/shashiranjanraj/ordersvc/pkg/metrics"
	"github.com/shashiranjanraj/ordersvc/pkg/middleware"
	"github.com/shashiranjanraj/ordersvc/pkg/reqid"
	"github.com/shashiranjanraj/ordersvc/pkg/response"
	"github.com/shashiranjanraj/ordersvc/pkg/router"
)

type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies are the peers whose X-Forwarded-For the rate limiter
	// believes.
	TrustedProxies []string
}

// New returns a router with the global middleware installed, outermost
// first: metrics, request id, logger, recovery, CORS, rate limit. Recovery
// sits inside the logger so panic reports carry the request id. ctx bounds
// the rate limiter's eviction loop.
func New(ctx context.Context, opts Options, register ...func(*router.Router)) *router.Router {
	r := router.New()

	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(opts.CORSOrigins))
	if opts.RateLimitRPS > 0 {
		r.Use(middleware.NewRateLimiter(ctx, opts.RateLimitRPS, opts.RateLimitBurst, opts.TrustedProxies...).Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Handle("/metrics", metrics.Handler())

	for _, fn := range register {
		fn(r)
	}
	return r
}
