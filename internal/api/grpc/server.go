// Package grpc serves the standard gRPC health service next to the HTTP API,
// so orchestrators can probe the process over either transport.
package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"ticketdesk-backoffice/internal/api/grpc/interceptor"
	"ticketdesk-backoffice/internal/logger"
)

// ServiceName is the health entry reporting the back-office API.
const ServiceName = "ticketdesk.backoffice"

// HealthServer wraps the grpc health implementation and keeps it in line
// with the database.
type HealthServer struct {
	srv      *grpc.Server
	health   *health.Server
	ping     func(ctx context.Context) error
	interval time.Duration
}

func NewHealthServer(ping func(ctx context.Context) error, interval time.Duration) *HealthServer {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor.NewLoggingInterceptor().Unary()),
	)
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)

	// Register reflection service for grpcurl
	reflection.Register(s)

	return &HealthServer{srv: s, health: h, ping: ping, interval: interval}
}

// Server exposes the underlying grpc.Server for Serve and GracefulStop.
func (h *HealthServer) Server() *grpc.Server { return h.srv }

// Check runs the ping once and publishes the result.
func (h *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if h.ping != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := h.ping(pctx)
		cancel()
		if err != nil {
			logger.Warn("Health check failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(ServiceName, st)
	return st
}

// Watch re-checks on every interval until ctx is done, then marks the
// service as shutting down.
func (h *HealthServer) Watch(ctx context.Context) {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
