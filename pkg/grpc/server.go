// Package grpc runs the side-channel gRPC server that orchestrators probe.
//
// It exposes the standard grpc.health.v1.Health service plus reflection.
// The overall status ("") and the "ordersvc" service follow a probe that
// is re-run on an interval, so a lost database flips the server to
// NOT_SERVING without a restart:
//
//	srv, err := grpc.Start(ctx, config.GRPCPort(), func(ctx context.Context) error {
//	    return database.Ping(ctx, db)
//	})
//	defer srv.Stop()
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/metrics"
)

// ServiceName is the health-check service name reported alongside "".
const ServiceName = "ordersvc"

// ProbeInterval is how often the readiness probe is re-run.
const ProbeInterval = 10 * time.Second

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ordersvc",
		Subsystem: "grpc",
		Name:      "server_handled_total",
		Help:      "Total number of gRPC calls completed by method and code.",
	}, []string{"grpc_method", "grpc_code"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ordersvc",
		Subsystem: "grpc",
		Name:      "server_handling_seconds",
		Help:      "Histogram of gRPC response latency in seconds.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"grpc_method"})
)

func init() {
	metrics.MustRegister(requestsTotal, requestDuration)
}

// Probe reports whether the process can serve traffic.
type Probe func(ctx context.Context) error

func recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("grpc: panic recovered",
				"method", info.FullMethod,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// observeInterceptor logs and records metrics for each unary call.
func observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	dur := time.Since(start)

	code := status.Code(err)
	requestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
	requestDuration.WithLabelValues(info.FullMethod).Observe(dur.Seconds())

	level := slog.LevelDebug
	if code != codes.OK {
		level = slog.LevelWarn
	}
	logger.WithCtx(ctx).Log(ctx, level, "grpc: request",
		"method", info.FullMethod,
		"duration_ms", dur.Milliseconds(),
		"code", code.String(),
	)
	return resp, err
}

type Server struct {
	srv    *grpc.Server
	health *health.Server
	lis    net.Listener
	probe  Probe
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds the server and runs the probe once so the first Check already
// reflects reality. Serve must be called to accept connections.
func New(ctx context.Context, probe Probe) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(recoveryInterceptor, observeInterceptor),
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(4*1024*1024),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	s := &Server{srv: srv, health: hs, probe: probe, done: make(chan struct{})}
	s.check(ctx)
	return s
}

// Start listens on port and serves in the background until Stop.
func Start(ctx context.Context, port string, probe Probe) (*Server, error) {
	addr := ":" + port
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc: listen on %s: %w", addr, err)
	}

	s := New(ctx, probe)
	s.Serve(ctx, lis)
	logger.Info("gRPC server started", "addr", lis.Addr().String())
	return s, nil
}

// Serve accepts on lis and starts the probe loop.
func (s *Server) Serve(ctx context.Context, lis net.Listener) {
	s.lis = lis
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		if err := s.srv.Serve(lis); err != nil {
			logger.Error("grpc: serve error", "error", err)
		}
	}()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(ProbeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.check(ctx)
			}
		}
	}()
}

func (s *Server) check(ctx context.Context) {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if s.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.probe(pctx)
		cancel()
		if err != nil {
			logger.Warn("grpc: readiness probe failed", "error", err)
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Addr is the bound listener address, empty before Serve.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// Stop marks every service NOT_SERVING and waits for in-flight RPCs.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.srv.GracefulStop()
}
