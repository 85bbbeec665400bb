// Package queue carries lease events over RabbitMQ: the payload type, a
// publisher used by the lease service and the audit-log consumer.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Lease event types published after a lease transaction commits.
const (
	EventLeaseCreated = "lease.created"
	// EventCellOpen asks the locker controller to open the cell door.
	EventCellOpen    = "cell.open"
	EventLeaseClosed = "lease.closed"
)

// LeaseEvent carries enough information for the locker controller and the
// audit log to act without querying the database.
type LeaseEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	LeaseID    uint64    `json:"lease_id"`
	CellID     uint64    `json:"cell_id"`
	UserID     uint64    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewLeaseEvent stamps a fresh event id.
func NewLeaseEvent(typ string, leaseID, cellID, userID uint64, at time.Time) LeaseEvent {
	return LeaseEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		LeaseID:    leaseID,
		CellID:     cellID,
		UserID:     userID,
		OccurredAt: at.UTC(),
	}
}
