package utils // package utils provides helpers for credentials, codes and hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const (
	// SessionTokenBytes is the entropy of a session token; its hex form
	// is twice as long.
	SessionTokenBytes = 32
	// SessionTokenLen is the length of an encoded session token.
	SessionTokenLen = 2 * SessionTokenBytes
	// PickupCodeLen is the number of digits in a pickup code.
	PickupCodeLen = 4
)

// NewSessionToken returns a random hex-encoded session token.  Only its
// HashToken digest is ever stored.
func NewSessionToken() (string, error) {
	return randomHex(SessionTokenBytes)
}

// HashToken returns the SHA-256 hex digest of a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// WellFormedSessionToken reports whether s looks like a token produced
// by NewSessionToken (lower-case hex of the right length).
func WellFormedSessionToken(s string) bool {
	if len(s) != SessionTokenLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}

// NewPickupCode returns PickupCodeLen uniformly random decimal digits.
// Leading zeros are kept.
func NewPickupCode() (string, error) {
	buf := make([]byte, PickupCodeLen)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

// WellFormedPickupCode reports whether s is exactly PickupCodeLen ASCII
// digits.
func WellFormedPickupCode(s string) bool {
	if len(s) != PickupCodeLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
