package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthInvalid
	KindNotAuthorized
	KindNotFound
	KindConflict
	KindInvalidInput
	KindResourceExhausted
)

func (k Kind) String() string {
	switch k {
	case KindAuthInvalid:
		return "auth_invalid"
	case KindNotAuthorized:
		return "not_authorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	case KindResourceExhausted:
		return "resource_exhausted"
	default:
		return "internal"
	}
}

// Error is a classified service error.  Two Errors match under errors.Is
// when their codes are equal, so a sentinel still matches after it was
// wrapped around a cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// wrap returns a copy of sentinel that records cause.
func wrap(sentinel *Error, cause error) *Error {
	e := *sentinel
	e.Err = cause
	return &e
}

var (
	ErrSessionMalformed = newError(KindAuthInvalid, "session_malformed", "malformed session token")
	ErrSessionNotFound  = newError(KindAuthInvalid, "session_not_found", "session is unknown, revoked or expired")
	ErrBadCredentials   = newError(KindAuthInvalid, "bad_credentials", "incorrect email or password")
	ErrWrongPassword    = newError(KindAuthInvalid, "wrong_password", "incorrect old password")

	ErrNotAdmin           = newError(KindNotAuthorized, "not_admin", "admin privileges required")
	ErrForbiddenUpdate    = newError(KindNotAuthorized, "forbidden_update", "non-admin users can only update their own info")
	ErrUserNotFound       = newError(KindNotFound, "user_not_found", "user not found")
	ErrCellTypeNotFound   = newError(KindNotFound, "cell_type_not_found", "cell type not found")
	ErrInvalidEmail       = newError(KindInvalidInput, "invalid_email", "invalid email address")
	ErrInvalidInput       = newError(KindInvalidInput, "invalid_input", "invalid input")
	ErrCellTypeExists     = newError(KindConflict, "cell_type_exists", "cell type already exists")
	ErrEmailTaken         = newError(KindConflict, "email_taken", "user already exists with the same email")
	ErrTypeUnavailable    = newError(KindResourceExhausted, "type_unavailable", "no cell with such type is available")
	ErrNoCellAvailable    = newError(KindResourceExhausted, "no_cell_available", "all equipment with such type is taken")
	ErrCodeSpaceExhausted = newError(KindResourceExhausted, "code_space_exhausted", "no pickup code available")
	ErrInvalidCode        = newError(KindInvalidInput, "invalid_code", "your code is invalid")
	ErrAlreadyOpen        = newError(KindConflict, "already_open", "equipment already taken")
	ErrAlreadyClosed      = newError(KindConflict, "already_closed", "lease already ended")
)

// EmailTakenError reports a duplicate registration together with the id
// of the account that owns the email.  It matches ErrEmailTaken.
type EmailTakenError struct {
	UserID uint64
}

func (e *EmailTakenError) Error() string {
	return fmt.Sprintf("%s (id %d)", ErrEmailTaken.Message, e.UserID)
}

func (e *EmailTakenError) Is(target error) bool { return target == ErrEmailTaken }

// KindOf classifies any error; unclassified errors are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	var taken *EmailTakenError
	if errors.As(err, &taken) {
		return KindConflict
	}
	return KindInternal
}

// CodeOf returns the machine-readable code of err, or "internal".
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	if errors.Is(err, ErrEmailTaken) {
		return ErrEmailTaken.Code
	}
	return "internal"
}
