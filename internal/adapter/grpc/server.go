package grpc

import (
	"net"

	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer exposes the gRPC health checking protocol for orchestrator health checks.
// The overall status ("") and the named service status move together.
type HealthServer struct {
	server  *grpc.Server
	health  *health.Server
	service string
	logger  *logger.Logger
}

func NewHealthServer(service string, appLogger *logger.Logger) *HealthServer {
	log := appLogger.Named("GRPCHealth")
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(LoggingInterceptor(log)),
	)
	reflection.Register(server)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{server: server, health: hs, service: service, logger: log}
}

func (s *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
	s.logger.Info("health status changed", zap.String("service", s.service), zap.String("status", status.String()))
}

// Serve marks the service as serving and blocks until Stop.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.SetServing(true)
	s.logger.Info("gRPC health server listening", zap.String("addr", lis.Addr().String()))
	return s.server.Serve(lis)
}

// Stop reports NOT_SERVING so load balancers drain traffic, then stops gracefully.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
	s.logger.Info("gRPC health server stopped")
}
