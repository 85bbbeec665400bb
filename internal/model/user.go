package model

import "time"

// User represents a registered locker user as stored in the `users`
// table.  Email is always kept in its normalized form (trimmed and
// lower-cased) so lookups by email are case-insensitive.  Users are
// never hard-deleted.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, normalized email address.
//  FirstName    – given name.
//  LastName     – family name.
//  PasswordHash – bcrypt hashed password; never serialized.
//  IsAdmin      – grants access to admin-only operations.
//  CreatedAt    – registration date.
type User struct {
	ID           uint64    `db:"id" json:"id"`                 // users.id
	Email        string    `db:"email" json:"email"`           // users.email
	FirstName    string    `db:"first_name" json:"first_name"` // users.first_name
	LastName     string    `db:"last_name" json:"last_name"`   // users.last_name
	PasswordHash string    `db:"password_hash" json:"-"`       // users.password_hash
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`     // users.is_admin
	CreatedAt    time.Time `db:"created_at" json:"created_at"` // users.created_at
}
