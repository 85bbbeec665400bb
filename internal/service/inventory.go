package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/repository"
)

// Inventory manages cell types and cell occupancy.  The Tx methods run
// inside a caller's transaction; the rest open their own.
type Inventory struct {
	store repository.Store
	opts  Options
}

func NewInventory(store repository.Store, opts Options) *Inventory {
	return &Inventory{store: store, opts: opts.withDefaults()}
}

// AvailableTypesTx lists the ids of types with at least one free cell.
func (i *Inventory) AvailableTypesTx(ctx context.Context, tx repository.Tx) ([]uint64, error) {
	return tx.AvailableCellTypeIDs(ctx)
}

// AllocateTx reserves the free cell of typeID with the lowest id.
func (i *Inventory) AllocateTx(ctx context.Context, tx repository.Tx, typeID uint64) (model.Cell, error) {
	c, err := tx.ClaimFreeCell(ctx, typeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Cell{}, wrap(ErrNoCellAvailable, err)
		}
		return model.Cell{}, err
	}
	return c, nil
}

// OpenTx marks the cell empty.  A cell that is already empty yields
// ErrAlreadyOpen and is left untouched.
func (i *Inventory) OpenTx(ctx context.Context, tx repository.Tx, cellID uint64) error {
	if err := tx.MarkCellEmpty(ctx, cellID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return wrap(ErrAlreadyOpen, err)
		}
		return err
	}
	return nil
}

// ReleaseTx frees the cell for the next lease.
func (i *Inventory) ReleaseTx(ctx context.Context, tx repository.Tx, cellID uint64) error {
	return tx.ReleaseCell(ctx, cellID)
}

// CellTypes returns the catalog.
func (i *Inventory) CellTypes(ctx context.Context) ([]model.CellType, error) {
	var out []model.CellType
	err := i.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListCellTypes(ctx)
		return err
	})
	return out, err
}

// AvailableTypes is the advisory, transaction-scoped availability list.
func (i *Inventory) AvailableTypes(ctx context.Context) ([]uint64, error) {
	var out []uint64
	err := i.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = i.AvailableTypesTx(ctx, tx)
		return err
	})
	return out, err
}

// AddCellType creates a cell type.  Admin only.
func (i *Inventory) AddCellType(ctx context.Context, actor model.User, name string) (model.CellType, error) {
	if !actor.IsAdmin {
		return model.CellType{}, ErrNotAdmin
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.CellType{}, wrap(ErrInvalidInput, errors.New("name is required"))
	}
	ct := model.CellType{Name: name}
	err := i.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.CreateCellType(ctx, &ct); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return wrap(ErrCellTypeExists, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.CellType{}, err
	}
	i.opts.Logger.Info().Uint64("type_id", ct.ID).Str("name", ct.Name).Msg("cell type added")
	return ct, nil
}

// AddCells creates count free cells of typeID.  Admin only.
func (i *Inventory) AddCells(ctx context.Context, actor model.User, typeID uint64, count int) ([]model.Cell, error) {
	if !actor.IsAdmin {
		return nil, ErrNotAdmin
	}
	if count < 1 || count > 1000 {
		return nil, wrap(ErrInvalidInput, fmt.Errorf("count must be between 1 and 1000, got %d", count))
	}
	cells := make([]model.Cell, 0, count)
	err := i.store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.CellTypeByID(ctx, typeID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return wrap(ErrCellTypeNotFound, err)
			}
			return err
		}
		for n := 0; n < count; n++ {
			c := model.Cell{TypeID: typeID}
			if err := tx.CreateCell(ctx, &c); err != nil {
				return err
			}
			cells = append(cells, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	i.opts.Logger.Info().Uint64("type_id", typeID).Int("count", count).Msg("cells added")
	return cells, nil
}
