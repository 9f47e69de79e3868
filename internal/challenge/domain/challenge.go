package domain

import "time"

// Kind tags a round of the authentication ceremony with the factor that produced it.
type Kind string

const (
	// KindCustom is the OTP challenge implemented by this service.
	KindCustom Kind = "CUSTOM_CHALLENGE"
	// KindNativeEntry is the provider-native password (SRP) entry round.
	KindNativeEntry Kind = "SRP_A"
	// KindNativeVerifier is the provider-native password verifier round.
	KindNativeVerifier Kind = "PASSWORD_VERIFIER"
)

// ChallengeTag is the metadata tag attached to every custom challenge this service issues.
const ChallengeTag = "OTP_CODE"

// Round is one challenge/response round of a ceremony as reported by the identity provider.
// Result is nil while the round is awaiting a response or when the provider omitted it.
type Round struct {
	Kind     Kind
	Result   *bool
	Metadata string
}

// Passed reports whether the round has an explicit true result. A missing result is a failure.
func (r Round) Passed() bool {
	return r.Result != nil && *r.Result
}

// Ceremony is the caller-held history of one authentication attempt. Read-only for this service.
type Ceremony struct {
	Rounds []Round
}

// Last returns the most recent round and true, or false when the ceremony has no rounds.
func (c *Ceremony) Last() (Round, bool) {
	if c == nil || len(c.Rounds) == 0 {
		return Round{}, false
	}
	return c.Rounds[len(c.Rounds)-1], true
}

// HasCustomRound reports whether an OTP challenge was already issued in this ceremony.
func (c *Ceremony) HasCustomRound() bool {
	if c == nil {
		return false
	}
	for _, r := range c.Rounds {
		if r.Kind == KindCustom {
			return true
		}
	}
	return false
}

// Key identifies a challenge record in the secret store.
type Key struct {
	Subject string
	Kind    Kind
}

// Record is the durable challenge state shared between issuance and verification.
// CodeHash is the digest of the code; the plaintext code is never stored.
type Record struct {
	Subject   string    `json:"subjectId"`
	CodeHash  string    `json:"codeHash"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Key returns the store key of the record.
func (r *Record) Key() Key {
	return Key{Subject: r.Subject, Kind: KindCustom}
}

// Live reports whether the record is still inside its validity window at now.
func (r *Record) Live(now time.Time) bool {
	return r != nil && now.Before(r.ExpiresAt)
}
