package challenge

import (
	"context"
	"errors"
	"strings"
	"time"

	"otp-ceremony/backend/internal/challenge/domain"
	"otp-ceremony/backend/internal/challenge/repository"
	"otp-ceremony/backend/internal/logger"
)

// Outcome classifies a verification for logs and metrics. It is never shown to the client.
type Outcome string

const (
	OutcomeVerified     Outcome = "verified"
	OutcomeMissingInput Outcome = "missing_input"
	OutcomeMismatch     Outcome = "mismatch"
	OutcomeExpired      Outcome = "expired"
	OutcomeSuperseded   Outcome = "superseded"
	OutcomeDegraded     Outcome = "degraded_accept"
	OutcomeStoreError   Outcome = "store_error"
	OutcomeCorrupt      Outcome = "corrupt_record"
)

// Verifier checks submitted codes against the issued digest and the stored record.
type Verifier struct {
	repo     repository.Repository
	hasher   *Hasher
	failOpen bool
	log      *logger.Logger
	nowF     func() time.Time
}

// NewVerifier returns a Verifier. With failOpen, a store error during the liveness check
// accepts on digest match alone.
func NewVerifier(repo repository.Repository, hasher *Hasher, failOpen bool, log *logger.Logger) *Verifier {
	if hasher == nil {
		hasher = &Hasher{}
	}
	if log == nil {
		log = logger.Named("challenge.verifier")
	}
	return &Verifier{
		repo:     repo,
		hasher:   hasher,
		failOpen: failOpen,
		log:      log,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Verify reports whether submitted is the live code for subject.
func (v *Verifier) Verify(ctx context.Context, subject, submitted, expected string) bool {
	ok, _ := v.Check(ctx, subject, submitted, expected)
	return ok
}

// Check is Verify plus the outcome classification.
func (v *Verifier) Check(ctx context.Context, subject, submitted, expected string) (bool, Outcome) {
	subject = NormalizeSubject(subject)
	submitted = strings.TrimSpace(submitted)
	if subject == "" || submitted == "" || expected == "" {
		return false, OutcomeMissingInput
	}
	if !v.hasher.Equal(submitted, expected) {
		return false, OutcomeMismatch
	}

	log := logger.C(ctx, v.log)
	key := domain.Key{Subject: subject, Kind: domain.KindCustom}
	rec, err := v.repo.Get(ctx, key)
	if errors.Is(err, repository.ErrCorruptRecord) {
		log.Warn().Err(err).Str("subject_hash", logger.SubjectHash(subject)).Msg("stored challenge undecodable, rejecting")
		return false, OutcomeCorrupt
	}
	if err != nil {
		if v.failOpen {
			log.Warn().Err(err).Str("subject_hash", logger.SubjectHash(subject)).Msg("store unreachable, accepting on digest match")
			return true, OutcomeDegraded
		}
		log.Error().Err(err).Str("subject_hash", logger.SubjectHash(subject)).Msg("store unreachable, rejecting")
		return false, OutcomeStoreError
	}
	if !rec.Live(v.nowF()) {
		return false, OutcomeExpired
	}
	// A newer code replaced the one the caller holds.
	if !digestEqual(rec.CodeHash, expected) {
		return false, OutcomeSuperseded
	}
	if err := v.repo.Delete(ctx, key); err != nil {
		log.Error().Err(err).Str("subject_hash", logger.SubjectHash(subject)).Msg("delete verified challenge failed, record lapses at ttl")
	}
	return true, OutcomeVerified
}
