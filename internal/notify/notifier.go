// Package notify delivers issued codes to users out of band.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrNoTarget is returned by NoTarget. The dispatcher logs it like any other delivery failure.
var ErrNoTarget = errors.New("notify: no delivery target configured")

// Message is one code delivery. Code is the plaintext secret and must never be logged
// outside dev mode.
type Message struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Code      string    `json:"code"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier sends a message to its recipient.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// NoTarget is the Notifier used when no delivery target is configured.
type NoTarget struct{}

// Notify always fails with ErrNoTarget.
func (NoTarget) Notify(context.Context, Message) error {
	return ErrNoTarget
}
