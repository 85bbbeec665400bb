package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/equipment-locker/internal/model"
)

const leaseColumns = `id, user_id, cell_id, token_id, start_time, end_time, is_returned`

// CreateLease inserts an OPEN lease and populates its ID.
func (r *mysqlTx) CreateLease(ctx context.Context, l *model.Lease) error {
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO leases (user_id, cell_id, start_time, is_returned) VALUES (?,?,?,0)`,
		l.UserID, l.CellID, l.StartTime.UTC())
	if err != nil {
		return fmt.Errorf("create lease: %w", err)
	}
	id, err := lastInsertID("create lease", res)
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func (r *mysqlTx) SetLeaseToken(ctx context.Context, leaseID, tokenID uint64) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE leases SET token_id = ? WHERE id = ?`, tokenID, leaseID)
	if err != nil {
		return fmt.Errorf("set lease token: %w", err)
	}
	return expectOne("set lease token", res, ErrNotFound)
}

// LeaseByID loads a lease and locks its row for the rest of the
// transaction so pickup and return of the same lease serialize.
func (r *mysqlTx) LeaseByID(ctx context.Context, id uint64) (model.Lease, error) {
	var l model.Lease
	if err := r.tx.GetContext(ctx, &l, `SELECT `+leaseColumns+` FROM leases WHERE id = ? FOR UPDATE`, id); err != nil {
		return model.Lease{}, notFound("get lease", err)
	}
	return l, nil
}

func (r *mysqlTx) CloseLease(ctx context.Context, id uint64, endTime time.Time) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE leases SET is_returned = 1, end_time = ? WHERE id = ? AND is_returned = 0`, endTime.UTC(), id)
	if err != nil {
		return fmt.Errorf("close lease: %w", err)
	}
	return expectOne("close lease", res, ErrConflict)
}

func (r *mysqlTx) LeasesByUser(ctx context.Context, userID uint64, withClosed bool) ([]model.Lease, error) {
	q := `SELECT ` + leaseColumns + ` FROM leases WHERE user_id = ?`
	if !withClosed {
		q += ` AND is_returned = 0`
	}
	q += ` ORDER BY id`
	leases := []model.Lease{}
	if err := r.tx.SelectContext(ctx, &leases, q, userID); err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	return leases, nil
}
