// Package devotp keeps plaintext codes by subject so they can be read back in dev mode
// (GET /dev/otp/{subject}). It is never wired in production.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds the latest plaintext code per subject until it expires.
type Store interface {
	// Put records code for subject until expiresAt, replacing any earlier code.
	Put(ctx context.Context, subject, code string, expiresAt time.Time)
	// Get returns the code for subject if present and not expired.
	Get(ctx context.Context, subject string) (code string, expiresAt time.Time, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev code store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores code for subject until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, subject, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[subject] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for subject if present and not expired. Expired entries are removed.
func (s *MemoryStore) Get(ctx context.Context, subject string) (string, time.Time, bool) {
	s.mu.RLock()
	e, ok := s.m[subject]
	s.mu.RUnlock()
	if !ok {
		return "", time.Time{}, false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		if cur, still := s.m[subject]; still && cur == e {
			delete(s.m, subject)
		}
		s.mu.Unlock()
		return "", time.Time{}, false
	}
	return e.code, e.expiresAt, true
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
