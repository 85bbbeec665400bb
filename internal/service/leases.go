package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/queue"
	"github.com/iliyamo/equipment-locker/internal/repository"
	"github.com/iliyamo/equipment-locker/internal/utils"
)

// CreateLeaseResult is returned to the user who requested a lease.  Code
// is the only way to reach the cell, so it is shown exactly once.
type CreateLeaseResult struct {
	LeaseID uint64 `json:"lease_id"`
	Code    string `json:"code"`
	CellID  uint64 `json:"cell_id"`
}

// EquipmentResult identifies the lease and cell touched by a pickup or
// return.
type EquipmentResult struct {
	LeaseID uint64 `json:"lease_id"`
	CellID  uint64 `json:"cell_id"`
}

// Leases drives the lease state machine.
//
//	lease: OPEN --return--> CLOSED
//	cell:  FREE --allocate--> TAKEN --open--> TAKEN+EMPTY --release--> FREE
type Leases struct {
	store     repository.Store
	inventory *Inventory
	tokens    *Tokens
	opts      Options
}

func NewLeases(store repository.Store, inventory *Inventory, tokens *Tokens, opts Options) *Leases {
	return &Leases{store: store, inventory: inventory, tokens: tokens, opts: opts.withDefaults()}
}

// Create reserves a free cell of typeID for user and issues its pickup
// code.  Nothing survives a failure at any step.
func (l *Leases) Create(ctx context.Context, user model.User, typeID uint64) (CreateLeaseResult, error) {
	started := l.opts.Now()
	var (
		res   CreateLeaseResult
		lease model.Lease
	)
	// The availability pre-check only short-circuits the common case; it
	// runs in its own read transaction and AllocateTx below decides.
	available, err := l.inventory.AvailableTypes(ctx)
	if err == nil && !slices.Contains(available, typeID) {
		err = ErrTypeUnavailable
	}
	if err == nil {
		err = l.store.WithTx(ctx, func(tx repository.Tx) error {
			var err error
			lease, res, err = l.createTx(ctx, tx, user, typeID, started)
			return err
		})
	}
	if err != nil {
		l.recordAllocationFailure(err)
		return CreateLeaseResult{}, err
	}

	l.opts.Metrics.LeaseCreated(l.opts.Now().Sub(started))
	l.opts.Logger.Info().
		Uint64("lease_id", res.LeaseID).
		Uint64("cell_id", res.CellID).
		Uint64("user_id", user.ID).
		Msg("lease created")
	l.publish(ctx, queue.EventLeaseCreated, lease)
	return res, nil
}

func (l *Leases) createTx(ctx context.Context, tx repository.Tx, user model.User, typeID uint64, started time.Time) (model.Lease, CreateLeaseResult, error) {
	cell, err := l.inventory.AllocateTx(ctx, tx, typeID)
	if err != nil {
		return model.Lease{}, CreateLeaseResult{}, err
	}
	lease := model.Lease{UserID: user.ID, CellID: cell.ID, StartTime: started}
	if err := tx.CreateLease(ctx, &lease); err != nil {
		return model.Lease{}, CreateLeaseResult{}, err
	}
	code, err := l.tokens.IssuePickupCode(ctx, tx, lease.ID)
	if err != nil {
		return model.Lease{}, CreateLeaseResult{}, err
	}
	if err := tx.SetLeaseToken(ctx, lease.ID, code.ID); err != nil {
		return model.Lease{}, CreateLeaseResult{}, err
	}
	lease.TokenID = &code.ID
	return lease, CreateLeaseResult{LeaseID: lease.ID, Code: code.Value, CellID: cell.ID}, nil
}

func (l *Leases) recordAllocationFailure(err error) {
	switch {
	case errors.Is(err, ErrTypeUnavailable):
		l.opts.Metrics.AllocationFailed("type_unavailable")
	case errors.Is(err, ErrNoCellAvailable):
		l.opts.Metrics.AllocationFailed("no_cell")
	case errors.Is(err, ErrCodeSpaceExhausted):
		l.opts.Metrics.AllocationFailed("code_space")
	}
}

// TakeEquipment opens the cell of the lease behind code.  The lease stays
// open.
func (l *Leases) TakeEquipment(ctx context.Context, code string) (EquipmentResult, error) {
	if !utils.WellFormedPickupCode(code) {
		return EquipmentResult{}, ErrInvalidCode
	}
	var lease model.Lease
	err := l.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		lease, _, err = l.tokens.ResolvePickupCode(ctx, tx, code)
		if err != nil {
			return err
		}
		// the cell may already belong to a newer lease
		if lease.IsReturned {
			return ErrAlreadyClosed
		}
		cell, err := tx.CellByID(ctx, lease.CellID)
		if err != nil {
			return fmt.Errorf("load cell %d: %w", lease.CellID, err)
		}
		if cell.IsEmpty {
			return ErrAlreadyOpen
		}
		return l.inventory.OpenTx(ctx, tx, cell.ID)
	})
	if err != nil {
		return EquipmentResult{}, err
	}

	l.opts.Metrics.CellOpened()
	l.opts.Logger.Info().Uint64("lease_id", lease.ID).Uint64("cell_id", lease.CellID).Msg("cell opened")
	l.publish(ctx, queue.EventCellOpen, lease)
	return EquipmentResult{LeaseID: lease.ID, CellID: lease.CellID}, nil
}

// ReturnEquipment closes the lease behind code, frees its cell and
// retires the code so the value can be issued again.  A prior pickup is
// not required.
func (l *Leases) ReturnEquipment(ctx context.Context, code string) (EquipmentResult, error) {
	if !utils.WellFormedPickupCode(code) {
		return EquipmentResult{}, ErrInvalidCode
	}
	var lease model.Lease
	err := l.store.WithTx(ctx, func(tx repository.Tx) error {
		var (
			tok model.Token
			err error
		)
		lease, tok, err = l.tokens.ResolvePickupCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if lease.IsReturned {
			return ErrAlreadyClosed
		}
		if err := l.inventory.ReleaseTx(ctx, tx, lease.CellID); err != nil {
			return err
		}
		if err := tx.CloseLease(ctx, lease.ID, l.opts.Now()); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return wrap(ErrAlreadyClosed, err)
			}
			return err
		}
		return tx.RetireToken(ctx, tok.ID)
	})
	if err != nil {
		return EquipmentResult{}, err
	}

	l.opts.Metrics.LeaseReturned()
	l.opts.Logger.Info().Uint64("lease_id", lease.ID).Uint64("cell_id", lease.CellID).Msg("lease closed")
	l.publish(ctx, queue.EventLeaseClosed, lease)
	return EquipmentResult{LeaseID: lease.ID, CellID: lease.CellID}, nil
}

// ListByUser returns the user's leases in creation order.
func (l *Leases) ListByUser(ctx context.Context, user model.User, withClosed bool) ([]model.Lease, error) {
	var out []model.Lease
	err := l.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.LeasesByUser(ctx, user.ID, withClosed)
		return err
	})
	return out, err
}

// publish is best effort: the lease state is already committed.
func (l *Leases) publish(ctx context.Context, typ string, lease model.Lease) {
	ev := queue.NewLeaseEvent(typ, lease.ID, lease.CellID, lease.UserID, l.opts.Now())
	if err := l.opts.Events.Publish(ctx, ev); err != nil {
		l.opts.Logger.Warn().Err(err).Str("event", typ).Uint64("lease_id", lease.ID).Msg("publish lease event failed")
	}
}
