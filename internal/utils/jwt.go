package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TerminalScope is the scope claim carried by locker terminal tokens.
const TerminalScope = "terminal"

// ErrInvalidTerminalToken is returned for any token that fails parsing,
// signature, expiry or scope checks.
var ErrInvalidTerminalToken = errors.New("invalid terminal token")

// TerminalClaims identifies a locker terminal.  Subject holds the
// terminal id.
type TerminalClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// NewTerminalToken signs an HS256 token for the terminal.  A zero ttl
// produces a token without expiry.
func NewTerminalToken(secret, terminalID string, ttl time.Duration) (string, error) {
	if secret == "" || terminalID == "" {
		return "", errors.New("secret and terminal id are required")
	}
	now := time.Now().UTC()
	claims := TerminalClaims{
		Scope: TerminalScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  terminalID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign terminal token: %w", err)
	}
	return signed, nil
}

// ParseTerminalToken verifies raw and returns the terminal id.
func ParseTerminalToken(secret, raw string) (string, error) {
	var claims TerminalClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTerminalToken, err)
	}
	if claims.Scope != TerminalScope || claims.Subject == "" {
		return "", ErrInvalidTerminalToken
	}
	return claims.Subject, nil
}
