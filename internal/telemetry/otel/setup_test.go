package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(ctx, Options{Endpoint: endpoint, ServiceName: "test-service"})
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
			t.Errorf("providers should be non-nil: %+v", providers)
		}
		if err := providers.Shutdown(ctx); err != nil {
			t.Errorf("shutdown should be no-op for empty endpoint, got error: %v", err)
		}
	}
}

func TestNewProviders_InvalidURL(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		endpoint string
	}{
		{"invalid characters", "://invalid"},
		{"malformed URL", "http://[invalid"},
		{"missing host", "http://"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewProviders(ctx, Options{Endpoint: tc.endpoint, ServiceName: "test-service"}); err == nil {
				t.Errorf("NewProviders(%q) should return error", tc.endpoint)
			}
		})
	}
}

// Exporter construction does not dial, so these succeed without a collector.
func TestNewProviders_WithEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, opt := range []Options{
		{Endpoint: "localhost:4317", ServiceName: "otp"},
		{Endpoint: "http://localhost:4317/v1/traces", ServiceName: "otp", Region: "ap-south-1"},
		{Endpoint: "https://localhost:4317", ServiceName: "otp", Insecure: true, Env: "staging"},
	} {
		providers, err := NewProviders(ctx, opt)
		if err != nil {
			t.Logf("NewProviders(%q): %v", opt.Endpoint, err)
			continue
		}
		_ = providers.Shutdown(ctx)
	}
}

func TestNewResource_Attributes(t *testing.T) {
	res, err := newResource(Options{ServiceName: "otp", Region: "ap-south-1", Env: "production"})
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	got := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		got[kv.Key] = kv.Value.Emit()
	}
	if got["service.name"] != "otp" || got["cloud.region"] != "ap-south-1" || got["deployment.environment.name"] != "production" {
		t.Errorf("resource attributes = %v", got)
	}
}

func TestSetGlobal_WithProviders(t *testing.T) {
	providers, err := NewProviders(context.Background(), Options{ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	oldTracerProvider := otel.GetTracerProvider()
	oldMeterProvider := otel.GetMeterProvider()

	providers.SetGlobal()

	if otel.GetTracerProvider() == oldTracerProvider {
		t.Error("TracerProvider should be updated")
	}
	if otel.GetMeterProvider() == oldMeterProvider {
		t.Error("MeterProvider should be updated")
	}
}

func TestOTLPTarget(t *testing.T) {
	cases := []struct {
		endpoint     string
		force        bool
		wantTarget   string
		wantInsecure bool
	}{
		{"localhost:4317", false, "localhost:4317", true},
		{"http://collector:4317/v1/logs", false, "collector:4317", true},
		{"https://collector:4317", false, "collector:4317", false},
		{"https://collector:4317", true, "collector:4317", true},
	}
	for _, tc := range cases {
		target, insecure, err := otlpTarget(tc.endpoint, tc.force)
		if err != nil {
			t.Fatalf("otlpTarget(%q): %v", tc.endpoint, err)
		}
		if target != tc.wantTarget || insecure != tc.wantInsecure {
			t.Errorf("otlpTarget(%q, %v) = %q, %v; want %q, %v", tc.endpoint, tc.force, target, insecure, tc.wantTarget, tc.wantInsecure)
		}
	}
}
