// Package telemetry records ceremony metrics and events.
package telemetry

import (
	"context"
	"time"

	"otp-ceremony/backend/internal/logger"
)

// Recorder is the ceremony-facing telemetry surface: one counter increment and one async
// event per step. A nil *Recorder is a no-op.
type Recorder struct {
	metrics *Metrics
	emitter EventEmitter
	region  string
	nowF    func() time.Time
}

// NewRecorder returns a Recorder. metrics and emitter may be nil.
func NewRecorder(metrics *Metrics, emitter EventEmitter, region string) *Recorder {
	return &Recorder{
		metrics: metrics,
		emitter: emitter,
		region:  region,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// Decided records a Define decision.
func (r *Recorder) Decided(ctx context.Context, subject, decision string) {
	if r == nil {
		return
	}
	r.metrics.add(ctx, r.metrics.counter(EventDecided), "decision", decision)
	r.emit(ctx, EventDecided, subject, decision)
}

// Issued records a Create, minted or reused.
func (r *Recorder) Issued(ctx context.Context, subject string, reused bool) {
	if r == nil {
		return
	}
	result := "minted"
	if reused {
		result = "reused"
	}
	r.metrics.add(ctx, r.metrics.counter(EventIssued), "result", result)
	r.emit(ctx, EventIssued, subject, result)
}

// Verified records a Verify outcome.
func (r *Recorder) Verified(ctx context.Context, subject, outcome string) {
	if r == nil {
		return
	}
	r.metrics.add(ctx, r.metrics.counter(EventVerified), "outcome", outcome)
	r.emit(ctx, EventVerified, subject, outcome)
}

func (r *Recorder) emit(ctx context.Context, typ, subject, result string) {
	if r.emitter == nil {
		return
	}
	EmitAsync(r.emitter, ctx, &Event{
		Type:        typ,
		SubjectHash: logger.SubjectHash(subject),
		RequestID:   logger.RequestID(ctx),
		Region:      r.region,
		Result:      result,
		CreatedAt:   r.nowF(),
	})
}
