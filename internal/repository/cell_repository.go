package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/equipment-locker/internal/model"
)

const cellColumns = `id, type_id, is_taken, is_empty`

// ListCellTypes returns the whole catalog ordered by id.
func (r *mysqlTx) ListCellTypes(ctx context.Context) ([]model.CellType, error) {
	types := []model.CellType{}
	if err := r.tx.SelectContext(ctx, &types, `SELECT id, name FROM cell_types ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list cell types: %w", err)
	}
	return types, nil
}

func (r *mysqlTx) CellTypeByID(ctx context.Context, id uint64) (model.CellType, error) {
	var ct model.CellType
	if err := r.tx.GetContext(ctx, &ct, `SELECT id, name FROM cell_types WHERE id=?`, id); err != nil {
		return model.CellType{}, notFound("get cell type", err)
	}
	return ct, nil
}

func (r *mysqlTx) CreateCellType(ctx context.Context, ct *model.CellType) error {
	res, err := r.tx.ExecContext(ctx, `INSERT INTO cell_types (name) VALUES (?)`, ct.Name)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create cell type: %w", ErrDuplicate)
		}
		return fmt.Errorf("create cell type: %w", err)
	}
	id, err := lastInsertID("create cell type", res)
	if err != nil {
		return err
	}
	ct.ID = id
	return nil
}

func (r *mysqlTx) CreateCell(ctx context.Context, c *model.Cell) error {
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO cells (type_id, is_taken, is_empty) VALUES (?,?,?)`, c.TypeID, c.IsTaken, c.IsEmpty)
	if err != nil {
		return fmt.Errorf("create cell: %w", err)
	}
	id, err := lastInsertID("create cell", res)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *mysqlTx) CellByID(ctx context.Context, id uint64) (model.Cell, error) {
	var c model.Cell
	if err := r.tx.GetContext(ctx, &c, `SELECT `+cellColumns+` FROM cells WHERE id=?`, id); err != nil {
		return model.Cell{}, notFound("get cell", err)
	}
	return c, nil
}

// AvailableCellTypeIDs is advisory only: a type listed here can still
// run out before ClaimFreeCell executes.
func (r *mysqlTx) AvailableCellTypeIDs(ctx context.Context) ([]uint64, error) {
	ids := []uint64{}
	if err := r.tx.SelectContext(ctx, &ids,
		`SELECT DISTINCT type_id FROM cells WHERE is_taken = 0 ORDER BY type_id`); err != nil {
		return nil, fmt.Errorf("available cell types: %w", err)
	}
	return ids, nil
}

// ClaimFreeCell locks the lowest free cell of the type that no other
// transaction holds and marks it taken.  SKIP LOCKED lets concurrent
// claims for the same type proceed to the next free row instead of
// queueing behind each other; when every free row is locked or taken
// the claim fails immediately with ErrNotFound.
func (r *mysqlTx) ClaimFreeCell(ctx context.Context, typeID uint64) (model.Cell, error) {
	var c model.Cell
	err := r.tx.GetContext(ctx, &c,
		`SELECT `+cellColumns+` FROM cells
		 WHERE type_id = ? AND is_taken = 0
		 ORDER BY id
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`, typeID)
	if err != nil {
		return model.Cell{}, notFound("claim cell", err)
	}
	res, err := r.tx.ExecContext(ctx, `UPDATE cells SET is_taken = 1 WHERE id = ? AND is_taken = 0`, c.ID)
	if err != nil {
		return model.Cell{}, fmt.Errorf("claim cell: %w", err)
	}
	if err := expectOne("claim cell", res, ErrNotFound); err != nil {
		return model.Cell{}, err
	}
	c.IsTaken = true
	return c, nil
}

func (r *mysqlTx) MarkCellEmpty(ctx context.Context, id uint64) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE cells SET is_empty = 1 WHERE id = ? AND is_empty = 0`, id)
	if err != nil {
		return fmt.Errorf("open cell: %w", err)
	}
	return expectOne("open cell", res, ErrConflict)
}

func (r *mysqlTx) ReleaseCell(ctx context.Context, id uint64) error {
	if _, err := r.tx.ExecContext(ctx, `UPDATE cells SET is_taken = 0, is_empty = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("release cell: %w", err)
	}
	return nil
}
