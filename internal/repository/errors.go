// Package repository defines the persistence contracts used by the
// locker services and their MySQL implementation.  The sentinel values
// below allow higher layers to distinguish between failure scenarios
// without depending on a particular driver.
package repository

import "errors"

// ErrNotFound is returned when a row addressed by id or by a unique
// key does not exist.  Services translate it into a domain error such
// as an unknown user or an invalid pickup code.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by conditional state transitions when the
// row is no longer in the expected state, for example closing a lease
// that is already returned or opening a cell that is already empty.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a unique index
// (email, cell type name, active token value).
var ErrDuplicate = errors.New("duplicate key")
