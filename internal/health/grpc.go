package health

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name for the prediction API. The
// empty name reports overall server health.
const ServiceName = "leafscan.Predictions"

// GRPCServer exposes the Checker through the standard grpc.health.v1 service.
type GRPCServer struct {
	server   *grpc.Server
	health   *grpchealth.Server
	checker  *Checker
	interval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func NewGRPCServer(checker *Checker, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	hs := grpchealth.NewServer()
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	s := &GRPCServer{
		server:   server,
		health:   hs,
		checker:  checker,
		interval: interval,
		stopChan: make(chan struct{}),
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve refreshes the serving status once, keeps it fresh in the background
// and blocks serving lis until Stop.
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.Refresh(context.Background())

	s.wg.Add(1)
	go s.watch()

	log.Printf("[health] gRPC health server listening on %s", lis.Addr())
	return s.server.Serve(lis)
}

// Refresh runs the checker and publishes the result. Degraded still counts as
// serving.
func (s *GRPCServer) Refresh(ctx context.Context) {
	report := s.checker.Check(ctx)
	if report.Status == StatusUnhealthy {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (s *GRPCServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *GRPCServer) watch() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			s.Refresh(ctx)
			cancel()
		}
	}
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (s *GRPCServer) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		s.health.Shutdown()
		s.server.GracefulStop()
		log.Println("[health] gRPC health server stopped")
	})
}
