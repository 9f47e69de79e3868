package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"otp-ceremony/backend/internal/logger"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestRecorder_CountsAndEmits(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	emitter := &mockEventEmitter{}
	rec := NewRecorder(metrics, emitter, "ap-south-1")

	ctx := context.Background()
	rec.Decided(ctx, "a@x.com", "ISSUE_CHALLENGE")
	rec.Issued(ctx, "a@x.com", false)
	rec.Issued(ctx, "a@x.com", true)
	rec.Verified(ctx, "a@x.com", "verified")

	totals := collect(t, reader)
	if totals["otp.decisions"] != 1 || totals["otp.issued"] != 2 || totals["otp.verifications"] != 1 {
		t.Errorf("totals = %v", totals)
	}

	events := waitForEvents(t, emitter, 4)
	for _, ev := range events {
		if ev.SubjectHash != logger.SubjectHash("a@x.com") || ev.Region != "ap-south-1" || ev.CreatedAt.IsZero() {
			t.Errorf("event = %+v", ev)
		}
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var rec *Recorder
	rec.Decided(context.Background(), "a@x.com", "REJECT")
	rec.Issued(context.Background(), "a@x.com", false)
	rec.Verified(context.Background(), "a@x.com", "mismatch")

	partial := NewRecorder(nil, nil, "")
	partial.Decided(context.Background(), "a@x.com", "REJECT")
}
