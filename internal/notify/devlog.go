package notify

import (
	"context"
	"time"

	"otp-ceremony/backend/internal/devotp"
	"otp-ceremony/backend/internal/logger"
)

const devModeNote = "DEV MODE ONLY"

// DevLog writes the plaintext code to the log and the dev store instead of delivering it.
// Wired only when dev OTP mode is enabled; config refuses that mode in production.
type DevLog struct {
	store devotp.Store
	ttl   time.Duration
	log   *logger.Logger
}

// NewDevLog returns a DevLog. store may be nil to only log.
func NewDevLog(store devotp.Store, ttl time.Duration, log *logger.Logger) *DevLog {
	if log == nil {
		log = logger.Named("notify.dev")
	}
	return &DevLog{store: store, ttl: ttl, log: log}
}

// Notify logs msg and records it for GET /dev/otp/{subject}.
func (d *DevLog) Notify(ctx context.Context, msg Message) error {
	logger.C(ctx, d.log).Warn().
		Str("note", devModeNote).
		Str("subject", msg.Subject).
		Str("code", msg.Code).
		Msg("DEV MODE ONLY: one-time code not delivered")
	if d.store != nil {
		d.store.Put(ctx, msg.Subject, msg.Code, msg.CreatedAt.Add(d.ttl))
	}
	return nil
}
