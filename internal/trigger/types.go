package trigger

import "otp-ceremony/backend/internal/challenge/domain"

// Round is one ceremony round as sent by the identity provider.
type Round struct {
	ChallengeName     string `json:"challengeName" validate:"required,max=64"`
	ChallengeResult   *bool  `json:"challengeResult,omitempty"`
	ChallengeMetadata string `json:"challengeMetadata,omitempty" validate:"max=256"`
}

// DefineRequest asks for the next step of a ceremony. A nil Session is malformed.
type DefineRequest struct {
	Subject string  `json:"subject"`
	Session []Round `json:"session"`
}

// DefineResponse carries the decision and the provider-facing flags derived from it.
type DefineResponse struct {
	Decision           string `json:"decision"`
	ChallengeName      string `json:"challengeName,omitempty"`
	IssueTokens        bool   `json:"issueTokens"`
	FailAuthentication bool   `json:"failAuthentication"`
}

// CreateRequest asks for a challenge for Subject. Session is used to detect a retry.
type CreateRequest struct {
	Subject string  `json:"subject" validate:"required,max=320"`
	Session []Round `json:"session" validate:"omitempty,dive"`
	Locale  string  `json:"locale,omitempty" validate:"max=64"`
}

// PublicChallengeParameters are shown to the user's client.
type PublicChallengeParameters struct {
	Subject string `json:"subject"`
	Kind    string `json:"kind"`
	Prompt  string `json:"prompt"`
}

// PrivateChallengeParameters stay with the identity provider and come back on Verify.
type PrivateChallengeParameters struct {
	Digest string `json:"digest"`
}

// CreateResponse is the challenge handed to the identity provider.
type CreateResponse struct {
	Public            PublicChallengeParameters  `json:"publicChallengeParameters"`
	Private           PrivateChallengeParameters `json:"privateChallengeParameters"`
	ChallengeMetadata string                     `json:"challengeMetadata"`
}

// VerifyRequest carries the user's answer and the private parameters from Create.
type VerifyRequest struct {
	Subject         string                     `json:"subject"`
	ChallengeAnswer string                     `json:"challengeAnswer"`
	Private         PrivateChallengeParameters `json:"privateChallengeParameters"`
}

// VerifyResponse reports whether the answer was correct.
type VerifyResponse struct {
	AnswerCorrect bool `json:"answerCorrect"`
}

// Ceremony converts the wire session to the domain form. A nil session yields a nil ceremony.
func Ceremony(session []Round) *domain.Ceremony {
	if session == nil {
		return nil
	}
	c := &domain.Ceremony{Rounds: make([]domain.Round, 0, len(session))}
	for _, r := range session {
		c.Rounds = append(c.Rounds, domain.Round{
			Kind:     domain.Kind(r.ChallengeName),
			Result:   r.ChallengeResult,
			Metadata: r.ChallengeMetadata,
		})
	}
	return c
}
