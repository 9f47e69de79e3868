package challenge

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	codeMin  = 100000
	codeSpan = 900000 // codes are in [codeMin, codeMin+codeSpan)

	// CodeLength is the number of ASCII digits in every generated code.
	CodeLength = 6
	// DigestLength is the hex length of every digest.
	DigestLength = 2 * sha256.Size

	digestKeyInfo = "otp-ceremony/code-digest/v1"
)

var codeSpanBig = big.NewInt(codeSpan)

// GenerateCode returns a uniformly random 6-digit code in [100000, 999999] from crypto/rand.
// rand.Int uses rejection sampling, so there is no modulo bias.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpanBig)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// Hasher derives fixed-length digests of codes. With a key it computes HMAC-SHA256;
// without one it falls back to plain SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher keyed from secret via HKDF-SHA256. An empty secret yields an
// unkeyed SHA-256 hasher.
func NewHasher(secret string) (*Hasher, error) {
	if secret == "" {
		return &Hasher{}, nil
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(digestKeyInfo)), key); err != nil {
		return nil, err
	}
	return &Hasher{key: key}, nil
}

// Keyed reports whether digests are bound to a server secret.
func (h *Hasher) Keyed() bool {
	return len(h.key) > 0
}

// Digest returns the hex-encoded digest of code.
func (h *Hasher) Digest(code string) string {
	if !h.Keyed() {
		sum := sha256.Sum256([]byte(code))
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal reports whether code digests to expected, in constant time. Empty inputs and
// length mismatches are plain mismatches.
func (h *Hasher) Equal(code, expected string) bool {
	if code == "" || expected == "" {
		return false
	}
	return digestEqual(h.Digest(code), expected)
}

func digestEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// NormalizeSubject returns the canonical form of a subject identifier (trimmed, lower-case).
func NormalizeSubject(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
