// Package security validates the caller tokens the identity provider attaches to trigger calls.
package security

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoKey is returned by NewCallerValidator without a signing key.
	ErrNoKey = errors.New("security: signing key is required")
)

// CallerClaims holds JWT claims for a trigger caller token.
type CallerClaims struct {
	jwt.RegisteredClaims
	// Pool identifies the user pool the trigger fires for; informational.
	Pool string `json:"pool,omitempty"`
}

// CallerValidator issues and validates HS256 caller tokens shared with the identity provider.
// Issue exists for tests and local tooling; the provider signs its own tokens in production.
type CallerValidator struct {
	key      []byte
	issuer   string
	audience string
	leeway   time.Duration
	nowF     func() time.Time
}

// NewCallerValidator returns a validator for tokens signed with key, issued by issuer for audience.
func NewCallerValidator(key, issuer, audience string) (*CallerValidator, error) {
	if key == "" {
		return nil, ErrNoKey
	}
	return &CallerValidator{
		key:      []byte(key),
		issuer:   issuer,
		audience: audience,
		leeway:   30 * time.Second,
		nowF:     time.Now,
	}, nil
}

// Issue signs a caller token for subject valid for ttl.
func (v *CallerValidator) Issue(subject, pool string, ttl time.Duration) (string, error) {
	now := v.nowF().UTC()
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			Audience:  jwt.ClaimStrings{v.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Pool: pool,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.key)
}

// Validate parses and validates the token (signature, exp, iss, aud) and returns its claims.
func (v *CallerValidator) Validate(tokenString string) (*CallerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
			return v.key, nil
		}
		return nil, ErrInvalidToken
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.nowF),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != v.issuer {
		return nil, ErrInvalidToken
	}
	if !slices.Contains(claims.Audience, v.audience) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
