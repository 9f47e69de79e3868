package telemetry

import (
	"context"
	"time"
)

// Event types.
const (
	EventDecided  = "otp.decided"
	EventIssued   = "otp.issued"
	EventVerified = "otp.verified"
)

// Event is one step of a ceremony. It never carries the code or its digest; subjects are
// identified by hash only.
type Event struct {
	Type        string
	SubjectHash string
	RequestID   string
	Region      string
	// Result is the decision name for EventDecided, the verification outcome for
	// EventVerified and "minted" or "reused" for EventIssued.
	Result    string
	CreatedAt time.Time
}

// EventEmitter emits ceremony events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
