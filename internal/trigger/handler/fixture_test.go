package handler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"otp-ceremony/backend/internal/challenge"
	"otp-ceremony/backend/internal/challenge/domain"
	"otp-ceremony/backend/internal/challenge/repository"
	"otp-ceremony/backend/internal/logger"
	"otp-ceremony/backend/internal/trigger"
)

type codeSink struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *codeSink) Dispatch(_ context.Context, subject, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codes == nil {
		c.codes = make(map[string]string)
	}
	c.codes[subject] = code
}

func (c *codeSink) get(subject string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[subject]
}

// downRepo fails every Put, standing in for an unreachable store.
type downRepo struct{ repository.Repository }

func (downRepo) Put(context.Context, *domain.Record, time.Duration) error {
	return errors.New("connection refused")
}

func quietLogger() *logger.Logger {
	l := logger.New(logger.Options{Level: "off", Writer: io.Discard})
	return &l
}

func newService(t *testing.T, repo repository.Repository) (*trigger.Service, *codeSink) {
	t.Helper()
	if repo == nil {
		repo = repository.NewMemoryRepository()
	}
	sink := &codeSink{}
	hasher, err := challenge.NewHasher("test-secret")
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	issuer := challenge.NewIssuer(repo, sink, hasher, challenge.NewPrompts("en"), 0, quietLogger())
	verifier := challenge.NewVerifier(repo, hasher, true, quietLogger())
	return trigger.NewService(issuer, verifier, nil, time.Second, quietLogger()), sink
}
