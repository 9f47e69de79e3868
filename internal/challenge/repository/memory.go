package repository

import (
	"context"
	"sync"
	"time"

	"otp-ceremony/backend/internal/challenge/domain"
)

type memEntry struct {
	rec      domain.Record
	deleteAt time.Time
}

// MemoryRepository is an in-process Repository for local development and tests.
// Expired entries are dropped lazily on read.
type MemoryRepository struct {
	mu   sync.Mutex
	m    map[domain.Key]memEntry
	nowF func() time.Time
}

// NewMemoryRepository returns an empty in-memory challenge store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		m:    make(map[domain.Key]memEntry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a copy of the record for key, or nil if missing or past its TTL.
func (r *MemoryRepository) Get(ctx context.Context, key domain.Key) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.m[key]
	if !ok {
		return nil, nil
	}
	if !r.nowF().Before(e.deleteAt) {
		delete(r.m, key)
		return nil, nil
	}
	rec := e.rec
	return &rec, nil
}

// Put upserts rec and schedules it for removal after ttl.
func (r *MemoryRepository) Put(ctx context.Context, rec *domain.Record, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[rec.Key()] = memEntry{rec: *rec, deleteAt: r.nowF().Add(ttl)}
	return nil
}

// Delete removes the record for key. Deleting a missing key is a no-op.
func (r *MemoryRepository) Delete(ctx context.Context, key domain.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, key)
	return nil
}

// Ping always succeeds.
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

// Len returns the number of stored entries, expired or not.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
