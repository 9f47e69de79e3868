// Package handler reports readiness over the standard gRPC health service and /healthz.
// Readiness follows the challenge store: a store that does not answer Ping is not serving.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"otp-ceremony/backend/internal/logger"
)

// Pinger is satisfied by every challenge store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server tracks store reachability and publishes it.
type Server struct {
	pinger  Pinger
	timeout time.Duration
	grpc    *health.Server
	log     *logger.Logger
	// services are the gRPC service names whose status follows the store.
	services []string
}

// NewServer returns a health server for pinger. A nil pinger is always serving.
func NewServer(pinger Pinger, services ...string) *Server {
	return &Server{
		pinger:   pinger,
		timeout:  2 * time.Second,
		grpc:     health.NewServer(),
		log:      logger.Named("health"),
		services: append([]string{""}, services...),
	}
}

// Register adds grpc.health.v1.Health to s.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(r, s.grpc)
}

// Check pings the store once.
func (s *Server) Check(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.pinger.Ping(ctx)
}

// Refresh runs Check and updates the gRPC serving status.
func (s *Server) Refresh(ctx context.Context) error {
	err := s.Check(ctx)
	st := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		s.log.Warn().Err(err).Msg("store ping failed")
	}
	for _, svc := range s.services {
		s.grpc.SetServingStatus(svc, st)
	}
	return err
}

// Run refreshes the status every interval until ctx is done.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	_ = s.Refresh(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = s.Refresh(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING so load balancers drain before the listener closes.
func (s *Server) Shutdown() {
	s.grpc.Shutdown()
}

type healthzResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ServeHTTP answers GET /healthz with 200 when the store is reachable, 503 otherwise.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code, body := http.StatusOK, healthzResponse{Status: "SERVING"}
	if err := s.Check(r.Context()); err != nil {
		code, body = http.StatusServiceUnavailable, healthzResponse{Status: "NOT_SERVING", Error: "store unavailable"}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
