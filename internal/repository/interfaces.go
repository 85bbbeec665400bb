package repository

import (
	"context"
	"time"

	"github.com/iliyamo/equipment-locker/internal/model"
)

// Store hands out transactions.  Every state-mutating operation of the
// services runs inside exactly one WithTx call: fn's mutations are
// committed when it returns nil and rolled back on any error or panic.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of entity operations available inside a transaction.
type Tx interface {
	UserRepository
	CellRepository
	LeaseRepository
	TokenRepository
	StatsRepository
}

// UserRepository persists users.
type UserRepository interface {
	// CreateUser inserts u and sets its ID.  ErrDuplicate when the
	// email is already registered.
	CreateUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id uint64) (model.User, error)
	UserByEmail(ctx context.Context, email string) (model.User, error)
	// ListUsers returns all users ordered by id.
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserName(ctx context.Context, id uint64, firstName, lastName string) error
	UpdateUserPassword(ctx context.Context, id uint64, passwordHash string) error
	SetUserAdmin(ctx context.Context, id uint64, isAdmin bool) error
}

// CellRepository persists the cell inventory.
type CellRepository interface {
	ListCellTypes(ctx context.Context) ([]model.CellType, error)
	CellTypeByID(ctx context.Context, id uint64) (model.CellType, error)
	// CreateCellType returns ErrDuplicate when the name is taken.
	CreateCellType(ctx context.Context, ct *model.CellType) error
	CreateCell(ctx context.Context, c *model.Cell) error
	CellByID(ctx context.Context, id uint64) (model.Cell, error)
	// AvailableCellTypeIDs lists, in ascending order, the ids of types
	// that have at least one cell with is_taken = false.
	AvailableCellTypeIDs(ctx context.Context) ([]uint64, error)
	// ClaimFreeCell picks the free cell of typeID with the lowest id and
	// marks it taken in one atomic step.  ErrNotFound when none is free.
	ClaimFreeCell(ctx context.Context, typeID uint64) (model.Cell, error)
	// MarkCellEmpty sets is_empty = true.  ErrConflict when the cell is
	// already empty.
	MarkCellEmpty(ctx context.Context, id uint64) error
	// ReleaseCell resets is_taken and is_empty to false.
	ReleaseCell(ctx context.Context, id uint64) error
}

// LeaseRepository persists leases.
type LeaseRepository interface {
	CreateLease(ctx context.Context, l *model.Lease) error
	SetLeaseToken(ctx context.Context, leaseID, tokenID uint64) error
	LeaseByID(ctx context.Context, id uint64) (model.Lease, error)
	// CloseLease sets is_returned and end_time.  ErrConflict when the
	// lease is already returned.
	CloseLease(ctx context.Context, id uint64, endTime time.Time) error
	// LeasesByUser returns the user's leases in insertion order.  Closed
	// leases are included only when withClosed is true.
	LeasesByUser(ctx context.Context, userID uint64, withClosed bool) ([]model.Lease, error)
}

// TokenRepository persists session tokens and pickup codes.
type TokenRepository interface {
	// CreateToken inserts t (which must be active) and sets its ID.
	// ErrDuplicate when an active token of the same kind already has
	// the same value.
	CreateToken(ctx context.Context, t *model.Token) error
	// ActiveSession returns the active, unexpired session token whose
	// stored value equals hash.
	ActiveSession(ctx context.Context, hash string, now time.Time) (model.Token, error)
	// LatestPickupCode returns the most recently issued pickup code with
	// the given value, active or retired.
	LatestPickupCode(ctx context.Context, code string) (model.Token, error)
	// RetireToken marks the token inactive so its value can be reused.
	RetireToken(ctx context.Context, id uint64) error
	// RetireUserSessions retires every active session of the user except
	// keepID (0 retires all).
	RetireUserSessions(ctx context.Context, userID, keepID uint64) error
	// DeleteExpiredSessions removes session rows whose expiry is at or
	// before now and returns how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// StatsRepository provides the admin analytics aggregates.
type StatsRepository interface {
	UserGrowth(ctx context.Context) ([]model.DailyCount, error)
	LeaseGrowth(ctx context.Context) ([]model.DailyCount, error)
	EquipmentFreeRatio(ctx context.Context) ([]model.TypeRatio, error)
	LeasesByType(ctx context.Context) ([]model.TypeCount, error)
	LeasesByTypeAndDate(ctx context.Context) ([]model.TypeDateCount, error)
}
