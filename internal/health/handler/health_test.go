package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type mockPinger struct {
	mu  sync.Mutex
	err error
}

func (m *mockPinger) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *mockPinger) set(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func grpcStatus(t *testing.T, s *Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.grpc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	return resp.Status
}

func TestRefresh_FollowsStore(t *testing.T) {
	p := &mockPinger{}
	s := NewServer(p, "otpceremony.v1.TriggerService")

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := grpcStatus(t, s, "otpceremony.v1.TriggerService"); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}

	p.set(errors.New("connection refused"))
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh: want error")
	}
	if got := grpcStatus(t, s, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("overall status = %v, want NOT_SERVING", got)
	}
}

func TestCheck_NilPinger(t *testing.T) {
	if err := NewServer(nil).Check(context.Background()); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestServeHTTP(t *testing.T) {
	p := &mockPinger{}
	s := NewServer(p)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	p.set(errors.New("down"))
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
