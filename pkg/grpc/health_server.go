package grpc

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/example/storefront/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Pinger is a backing store whose reachability decides the serving status.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer exposes grpc.health.v1.Health for the storefront. The overall
// status ("") and the per-service status follow the result of probing every
// dependency.
type HealthServer struct {
	config  *config.GRPCConfig
	service string
	deps    map[string]Pinger
	health  *health.Server
	srv     *grpc.Server
	logger  *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func NewHealthServer(cfg *config.GRPCConfig, service string, deps map[string]Pinger, logger *zap.Logger) *HealthServer {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)

	return &HealthServer{
		config:  cfg,
		service: service,
		deps:    deps,
		health:  h,
		srv:     srv,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Refresh pings every dependency once and updates the serving status.
func (s *HealthServer) Refresh(ctx context.Context) bool {
	names := make([]string, 0, len(s.deps))
	for name := range s.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	for _, name := range names {
		if err := s.deps[name].Ping(ctx); err != nil {
			healthy = false
			s.logger.Warn("Dependency unhealthy", zap.String("dependency", name), zap.Error(err))
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
	return healthy
}

func (s *HealthServer) refreshLoop() {
	interval := s.config.CheckInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), interval/2)
		s.Refresh(ctx)
		cancel()

		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}
}

// Start blocks serving on the configured address.
func (s *HealthServer) Start() error {
	addr := s.config.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	go s.refreshLoop()

	s.logger.Info("gRPC health server starting", zap.String("address", addr))
	return s.srv.Serve(lis)
}

func (s *HealthServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.health.Shutdown()
		s.srv.GracefulStop()
	})
}

// Check answers a health request without going through the network.
func (s *HealthServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
