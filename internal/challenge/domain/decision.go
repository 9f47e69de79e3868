package domain

// Decision is the outcome of deciding the next step of a ceremony.
type Decision int

const (
	// DecisionReject ends the ceremony with a failed authentication. It is the zero value so an
	// unset Decision never grants access.
	DecisionReject Decision = iota
	// DecisionNativeVerifier hands the ceremony to the provider's own password verifier.
	DecisionNativeVerifier
	// DecisionIssueChallenge asks the provider to run the custom OTP challenge (again).
	DecisionIssueChallenge
	// DecisionAccept ends the ceremony successfully.
	DecisionAccept
)

// String returns the wire name of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionNativeVerifier:
		return "NATIVE_VERIFIER"
	case DecisionIssueChallenge:
		return "ISSUE_CHALLENGE"
	case DecisionAccept:
		return "ACCEPT"
	default:
		return "REJECT"
	}
}

// Terminal reports whether the decision ends the ceremony.
func (d Decision) Terminal() bool {
	return d == DecisionAccept || d == DecisionReject
}

// NextChallenge returns the challenge kind the provider should run next, or "" for terminal decisions.
func (d Decision) NextChallenge() Kind {
	switch d {
	case DecisionNativeVerifier:
		return KindNativeVerifier
	case DecisionIssueChallenge:
		return KindCustom
	default:
		return ""
	}
}
