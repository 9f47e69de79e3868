// Package trigger adapts the challenge core to the identity provider's three triggers
// (define, create, verify) independently of transport.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"otp-ceremony/backend/internal/challenge"
	"otp-ceremony/backend/internal/challenge/domain"
	"otp-ceremony/backend/internal/logger"
	"otp-ceremony/backend/internal/telemetry"
)

// DefaultDeadline bounds each trigger call.
const DefaultDeadline = 5 * time.Second

var (
	// ErrInvalidRequest is returned by Create for requests that can never succeed.
	ErrInvalidRequest = errors.New("trigger: invalid request")
	// ErrUnavailable is returned by Create when the challenge could not be stored in time.
	ErrUnavailable = errors.New("trigger: challenge service unavailable")
)

// Issuer is the part of challenge.Issuer used by the service.
type Issuer interface {
	Issue(ctx context.Context, subject string, retry bool, locale string) (*challenge.Challenge, error)
}

// Verifier is the part of challenge.Verifier used by the service.
type Verifier interface {
	Check(ctx context.Context, subject, submitted, expected string) (bool, challenge.Outcome)
}

// Service implements the three triggers.
type Service struct {
	issuer   Issuer
	verifier Verifier
	recorder *telemetry.Recorder
	deadline time.Duration
	log      *logger.Logger
}

// NewService returns a Service. recorder may be nil; deadline <= 0 uses DefaultDeadline.
func NewService(issuer Issuer, verifier Verifier, recorder *telemetry.Recorder, deadline time.Duration, log *logger.Logger) *Service {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	if log == nil {
		log = logger.Named("trigger")
	}
	return &Service{issuer: issuer, verifier: verifier, recorder: recorder, deadline: deadline, log: log}
}

// Define decides the next step of the ceremony. It never fails; malformed input rejects.
func (s *Service) Define(ctx context.Context, req DefineRequest) DefineResponse {
	d := challenge.Decide(Ceremony(req.Session))
	subject := challenge.NormalizeSubject(req.Subject)
	logger.C(ctx, s.log).Debug().
		Str("subject_hash", logger.SubjectHash(subject)).
		Int("rounds", len(req.Session)).
		Str("decision", d.String()).
		Msg("ceremony decided")
	s.recorder.Decided(ctx, subject, d.String())
	return DefineResponse{
		Decision:           d.String(),
		ChallengeName:      string(d.NextChallenge()),
		IssueTokens:        d == domain.DecisionAccept,
		FailAuthentication: d == domain.DecisionReject,
	}
}

// Create issues (or reuses) a challenge. It is the only trigger that can fail.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	retry := Ceremony(req.Session).HasCustomRound()
	ch, err := s.issuer.Issue(ctx, req.Subject, retry, req.Locale)
	if err != nil {
		if errors.Is(err, challenge.ErrInvalidSubject) {
			return CreateResponse{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		logger.C(ctx, s.log).Error().Err(err).Msg("create challenge failed")
		return CreateResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.recorder.Issued(ctx, ch.Subject, ch.Reused)
	return CreateResponse{
		Public: PublicChallengeParameters{
			Subject: ch.Subject,
			Kind:    string(ch.Kind),
			Prompt:  ch.Prompt,
		},
		Private:           PrivateChallengeParameters{Digest: ch.Digest},
		ChallengeMetadata: ch.Tag,
	}, nil
}

// Verify checks the answer. It never fails; any problem is an incorrect answer.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) VerifyResponse {
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	ok, outcome := s.verifier.Check(ctx, req.Subject, req.ChallengeAnswer, req.Private.Digest)
	subject := challenge.NormalizeSubject(req.Subject)
	logger.C(ctx, s.log).Info().
		Str("subject_hash", logger.SubjectHash(subject)).
		Str("outcome", string(outcome)).
		Msg("answer verified")
	s.recorder.Verified(ctx, subject, string(outcome))
	return VerifyResponse{AnswerCorrect: ok}
}
