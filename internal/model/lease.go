package model

import "time"

// Lease records one user borrowing one cell for an interval.  A lease
// is created OPEN together with the reservation of its cell and moves
// to CLOSED exactly once, when the equipment is returned.  Closure is
// terminal.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – user who owns the lease.
//  CellID     – cell reserved by the lease.
//  TokenID    – pickup code issued for the lease (nil only while the
//               creating transaction is still in flight).
//  StartTime  – when the lease was created.
//  EndTime    – when the equipment was returned (nil while open).
//  IsReturned – true once the lease is closed.
type Lease struct {
	ID         uint64     `db:"id" json:"id"`                   // leases.id
	UserID     uint64     `db:"user_id" json:"user_id"`         // leases.user_id
	CellID     uint64     `db:"cell_id" json:"cell_id"`         // leases.cell_id
	TokenID    *uint64    `db:"token_id" json:"token_id"`       // leases.token_id (nullable)
	StartTime  time.Time  `db:"start_time" json:"start_time"`   // leases.start_time
	EndTime    *time.Time `db:"end_time" json:"end_time"`       // leases.end_time (nullable)
	IsReturned bool       `db:"is_returned" json:"is_returned"` // leases.is_returned
}

// Open reports whether the lease has not been closed yet.
func (l Lease) Open() bool { return !l.IsReturned }
