// Package challenge implements the OTP ceremony: deciding the next step, issuing codes and
// verifying answers.
package challenge

import "otp-ceremony/backend/internal/challenge/domain"

// MaxFailedAttempts is the number of failed custom rounds after which a ceremony is rejected.
const MaxFailedAttempts = 3

// Decide returns the next step of the ceremony. It is pure: the same history always yields
// the same decision. A nil ceremony is malformed and rejects.
func Decide(c *domain.Ceremony) domain.Decision {
	if c == nil {
		return domain.DecisionReject
	}
	if len(c.Rounds) == 1 && c.Rounds[0].Kind == domain.KindNativeEntry {
		return domain.DecisionNativeVerifier
	}
	last, ok := c.Last()
	if !ok {
		return domain.DecisionIssueChallenge
	}
	if FailedAttempts(c) >= MaxFailedAttempts {
		return domain.DecisionReject
	}
	switch last.Kind {
	case domain.KindCustom:
		if last.Passed() {
			return domain.DecisionAccept
		}
		return domain.DecisionIssueChallenge
	case domain.KindNativeVerifier:
		// The provider's own verifier already ran; its result is final.
		if last.Passed() {
			return domain.DecisionAccept
		}
		return domain.DecisionReject
	default:
		return domain.DecisionReject
	}
}

// FailedAttempts counts custom rounds without an explicit true result.
func FailedAttempts(c *domain.Ceremony) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, r := range c.Rounds {
		if r.Kind == domain.KindCustom && !r.Passed() {
			n++
		}
	}
	return n
}
