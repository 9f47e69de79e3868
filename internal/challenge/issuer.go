package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"otp-ceremony/backend/internal/challenge/domain"
	"otp-ceremony/backend/internal/challenge/repository"
	"otp-ceremony/backend/internal/logger"
)

var (
	// ErrInvalidSubject is returned when the subject is empty after normalization.
	ErrInvalidSubject = errors.New("challenge: subject is required")
	// ErrStoreWrite is returned when the challenge record could not be persisted. No code is
	// delivered in that case.
	ErrStoreWrite = errors.New("challenge: could not persist challenge")
)

// Dispatcher arranges out-of-band delivery of a code. Dispatch must not block on delivery;
// ctx carries request-scoped values only and its cancellation must not abort delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, subject, code string)
}

// Challenge is the result of Issue: the public prompt and the private digest handed back
// to the identity provider.
type Challenge struct {
	Subject   string
	Kind      domain.Kind
	Tag       string
	Prompt    string
	Digest    string
	ExpiresAt time.Time
	// Reused is true when a live code from an earlier round was kept instead of minting.
	Reused bool
}

// Issuer mints, persists and dispatches one-time codes.
type Issuer struct {
	repo       repository.Repository
	dispatcher Dispatcher
	hasher     *Hasher
	prompts    *Prompts
	ttl        time.Duration
	log        *logger.Logger

	nowF     func() time.Time
	generate func() (string, error)
}

// NewIssuer returns an Issuer. ttl <= 0 uses repository.DefaultChallengeTTL; nil hasher,
// prompts or log fall back to unkeyed SHA-256, English and the root logger.
func NewIssuer(repo repository.Repository, dispatcher Dispatcher, hasher *Hasher, prompts *Prompts, ttl time.Duration, log *logger.Logger) *Issuer {
	if ttl <= 0 {
		ttl = repository.DefaultChallengeTTL
	}
	if hasher == nil {
		hasher = &Hasher{}
	}
	if prompts == nil {
		prompts = NewPrompts("")
	}
	if log == nil {
		log = logger.Named("challenge.issuer")
	}
	return &Issuer{
		repo:       repo,
		dispatcher: dispatcher,
		hasher:     hasher,
		prompts:    prompts,
		ttl:        ttl,
		log:        log,
		nowF:       func() time.Time { return time.Now().UTC() },
		generate:   GenerateCode,
	}
}

// Issue produces the challenge for subject. When retry is true and a live record exists,
// the existing digest is returned without writing or dispatching. A failed read on retry is
// logged and a fresh code is minted.
func (i *Issuer) Issue(ctx context.Context, subject string, retry bool, locale string) (*Challenge, error) {
	subject = NormalizeSubject(subject)
	if subject == "" {
		return nil, ErrInvalidSubject
	}
	now := i.nowF()
	log := logger.C(ctx, i.log)

	if retry {
		rec, err := i.repo.Get(ctx, domain.Key{Subject: subject, Kind: domain.KindCustom})
		switch {
		case err != nil:
			log.Warn().Err(err).Str("subject_hash", logger.SubjectHash(subject)).Msg("retry lookup failed, minting a new code")
		case rec.Live(now):
			log.Debug().Str("subject", subject).Time("expires_at", rec.ExpiresAt).Msg("reusing live challenge")
			return i.challenge(subject, rec, locale, true), nil
		}
	}

	code, err := i.generate()
	if err != nil {
		return nil, fmt.Errorf("challenge: generate code: %w", err)
	}
	rec := &domain.Record{
		Subject:   subject,
		CodeHash:  i.hasher.Digest(code),
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	if err := i.repo.Put(ctx, rec, i.ttl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if i.dispatcher != nil {
		i.dispatcher.Dispatch(ctx, subject, code)
	}
	log.Info().Str("subject_hash", logger.SubjectHash(subject)).Time("expires_at", rec.ExpiresAt).Msg("challenge issued")
	return i.challenge(subject, rec, locale, false), nil
}

func (i *Issuer) challenge(subject string, rec *domain.Record, locale string, reused bool) *Challenge {
	return &Challenge{
		Subject:   subject,
		Kind:      domain.KindCustom,
		Tag:       domain.ChallengeTag,
		Prompt:    i.prompts.For(locale),
		Digest:    rec.CodeHash,
		ExpiresAt: rec.ExpiresAt,
		Reused:    reused,
	}
}
