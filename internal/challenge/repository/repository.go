package repository

import (
	"context"
	"errors"
	"time"

	"otp-ceremony/backend/internal/challenge/domain"
)

var (
	// ErrUnavailable wraps backend failures (network, timeout). Absence is not an error.
	ErrUnavailable = errors.New("challenge store unavailable")
	// ErrCorruptRecord is returned when a stored record cannot be decoded. Callers treat it
	// like a missing record, not an outage.
	ErrCorruptRecord = errors.New("challenge store: corrupt record")
)

// Repository is the secret store used by the challenge flow. Put is an upsert by key and
// registers the record for automatic removal after ttl. Get returns nil, nil when no
// record exists.
type Repository interface {
	Get(ctx context.Context, key domain.Key) (*domain.Record, error)
	Put(ctx context.Context, rec *domain.Record, ttl time.Duration) error
	Delete(ctx context.Context, key domain.Key) error
}

// Pinger reports whether the backing store is reachable. Used by health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DefaultChallengeTTL is the validity window of an issued code.
const DefaultChallengeTTL = 5 * time.Minute
