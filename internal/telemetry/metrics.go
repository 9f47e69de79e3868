package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "otp-ceremony/challenge"

// Metrics holds the ceremony counters. A nil *Metrics records nothing.
type Metrics struct {
	decisions     metric.Int64Counter
	issued        metric.Int64Counter
	verifications metric.Int64Counter
}

// NewMetrics registers the ceremony counters on mp, or the global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(meterName)
	decisions, err := m.Int64Counter("otp.decisions", metric.WithDescription("Ceremony decisions by outcome"))
	if err != nil {
		return nil, err
	}
	issued, err := m.Int64Counter("otp.issued", metric.WithDescription("Challenges issued, minted or reused"))
	if err != nil {
		return nil, err
	}
	verifications, err := m.Int64Counter("otp.verifications", metric.WithDescription("Verifications by outcome"))
	if err != nil {
		return nil, err
	}
	return &Metrics{decisions: decisions, issued: issued, verifications: verifications}, nil
}

func (m *Metrics) counter(eventType string) metric.Int64Counter {
	if m == nil {
		return nil
	}
	switch eventType {
	case EventDecided:
		return m.decisions
	case EventIssued:
		return m.issued
	case EventVerified:
		return m.verifications
	}
	return nil
}

func (m *Metrics) add(ctx context.Context, c metric.Int64Counter, key, value string) {
	if m == nil || c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String(key, value)))
}
