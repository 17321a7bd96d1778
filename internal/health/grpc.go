package health

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name the restaurant backend reports under in the gRPC
// health protocol, next to the overall "" entry.
const ServiceName = "restro.Restaurant"

// Check tests one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

type Monitor struct {
	checks   map[string]Check
	interval time.Duration
	server   *grpchealth.Server

	mu      sync.RWMutex
	results map[string]error
}

func NewMonitor(interval time.Duration, checks map[string]Check) *Monitor {
	return &Monitor{
		checks:   checks,
		interval: interval,
		server:   grpchealth.NewServer(),
		results:  make(map[string]error, len(checks)),
	}
}

// CheckAll runs every check once and publishes the outcome.
func (m *Monitor) CheckAll(ctx context.Context) map[string]error {
	results := make(map[string]error, len(m.checks))
	for name, check := range m.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		results[name] = check(checkCtx)
		cancel()
		if results[name] != nil {
			logrus.WithError(results[name]).WithField("dependency", name).Warn("health check failed")
		}
	}

	m.mu.Lock()
	m.results = results
	m.mu.Unlock()

	st := healthpb.HealthCheckResponse_SERVING
	for _, err := range results {
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}
	m.server.SetServingStatus("", st)
	m.server.SetServingStatus(ServiceName, st)
	return results
}

// Results returns the outcome of the latest check round.
func (m *Monitor) Results() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]error, len(m.results))
	for k, v := range m.results {
		out[k] = v
	}
	return out
}

// Run checks on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.CheckAll(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// NewGRPCServer builds a gRPC server exposing the health service and
// reflection.
func (m *Monitor) NewGRPCServer() *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, m.server)
	reflection.Register(s)
	return s
}

func Serve(s *grpc.Server, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", port, err)
	}
	logrus.WithField("port", port).Info("gRPC health service listening")
	return s.Serve(lis)
}
