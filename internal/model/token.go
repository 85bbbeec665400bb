package model

import "time"

// TokenKind distinguishes the two logical token kinds stored in the
// `tokens` table.
type TokenKind string

const (
	// TokenSession is a bearer credential bound to a user.  Only the
	// SHA-256 hash of the raw value is stored.
	TokenSession TokenKind = "session"
	// TokenPickup is a 4-digit code bound to a lease.
	TokenPickup TokenKind = "pickup"
)

// Token models an entry in the `tokens` table.  Active tokens take part
// in the uniqueness index over (kind, value); retiring a token (logout,
// lease closure) frees its value for reuse while keeping the row for
// history.
//
// Fields:
//  ID        – primary key identifier.
//  Kind      – session or pickup.
//  Value     – session hash or plain pickup code.
//  UserID    – owner of a session token.
//  LeaseID   – lease of a pickup code.
//  ExpiresAt – expiry of a session token (nil for pickup codes).
//  Active    – false once revoked or retired.
//  CreatedAt – creation timestamp.
type Token struct {
	ID        uint64     `db:"id"`         // tokens.id
	Kind      TokenKind  `db:"kind"`       // tokens.kind
	Value     string     `db:"value"`      // tokens.value
	UserID    *uint64    `db:"user_id"`    // tokens.user_id (nullable)
	LeaseID   *uint64    `db:"lease_id"`   // tokens.lease_id (nullable)
	ExpiresAt *time.Time `db:"expires_at"` // tokens.expires_at (nullable)
	Active    bool       `db:"active"`     // tokens.active
	CreatedAt time.Time  `db:"created_at"` // tokens.created_at
}

// Expired reports whether the token has an expiry that lies at or before now.
func (t Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
