// Package grpc runs the gRPC health endpoint. Serving status follows the
// reachability of the backing store.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name probes can ask about besides the empty server-wide name.
const ServiceName = "rooftop"

const DefaultProbeInterval = 10 * time.Second

// Pinger reports whether the store answers. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type GRPCServer struct {
	address  string
	probe    Pinger
	interval time.Duration
	health   *health.Server
	logger   logging.Logger
}

// NewGRPCServer builds a health server on address. A nil probe means the
// store is always considered reachable.
func NewGRPCServer(a string, l logging.Logger, probe Pinger, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &GRPCServer{
		address:  a,
		probe:    probe,
		interval: interval,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_server"),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.logCalls))
	healthpb.RegisterHealthServer(srv, s.health)

	s.check(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info(ctx, "Stopping gPRC server...")
				s.health.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				s.check(ctx)
			}
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

// check probes the store and publishes the result.
func (s *GRPCServer) check(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	if s.probe != nil {
		pingCtx, cancel := context.WithTimeout(ctx, s.interval)
		err := s.probe.PingContext(pingCtx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "store unreachable", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
