package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/equipment-locker/internal/model"
)

func (r *mysqlTx) UserGrowth(ctx context.Context) ([]model.DailyCount, error) {
	out := []model.DailyCount{}
	err := r.tx.SelectContext(ctx, &out,
		`SELECT DATE_FORMAT(created_at, '%Y-%m-%d') AS day, COUNT(*) AS cnt
		 FROM users GROUP BY day ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("user growth: %w", err)
	}
	return out, nil
}

func (r *mysqlTx) LeaseGrowth(ctx context.Context) ([]model.DailyCount, error) {
	out := []model.DailyCount{}
	err := r.tx.SelectContext(ctx, &out,
		`SELECT DATE_FORMAT(start_time, '%Y-%m-%d') AS day, COUNT(*) AS cnt
		 FROM leases GROUP BY day ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("lease growth: %w", err)
	}
	return out, nil
}

// EquipmentFreeRatio includes types without cells (free = total = 0).
func (r *mysqlTx) EquipmentFreeRatio(ctx context.Context) ([]model.TypeRatio, error) {
	out := []model.TypeRatio{}
	err := r.tx.SelectContext(ctx, &out,
		`SELECT ct.id AS type_id, ct.name AS name,
		        COALESCE(SUM(c.is_taken = 0), 0) AS free,
		        COUNT(c.id) AS total
		 FROM cell_types ct
		 LEFT JOIN cells c ON c.type_id = ct.id
		 GROUP BY ct.id, ct.name
		 ORDER BY ct.id`)
	if err != nil {
		return nil, fmt.Errorf("free ratio: %w", err)
	}
	return out, nil
}

func (r *mysqlTx) LeasesByType(ctx context.Context) ([]model.TypeCount, error) {
	out := []model.TypeCount{}
	err := r.tx.SelectContext(ctx, &out,
		`SELECT ct.id AS type_id, ct.name AS name, COUNT(l.id) AS cnt
		 FROM cell_types ct
		 LEFT JOIN cells c ON c.type_id = ct.id
		 LEFT JOIN leases l ON l.cell_id = c.id
		 GROUP BY ct.id, ct.name
		 ORDER BY ct.id`)
	if err != nil {
		return nil, fmt.Errorf("leases by type: %w", err)
	}
	return out, nil
}

func (r *mysqlTx) LeasesByTypeAndDate(ctx context.Context) ([]model.TypeDateCount, error) {
	out := []model.TypeDateCount{}
	err := r.tx.SelectContext(ctx, &out,
		`SELECT ct.id AS type_id, ct.name AS name,
		        DATE_FORMAT(l.start_time, '%Y-%m-%d') AS day, COUNT(*) AS cnt
		 FROM leases l
		 JOIN cells c ON c.id = l.cell_id
		 JOIN cell_types ct ON ct.id = c.type_id
		 GROUP BY ct.id, ct.name, day
		 ORDER BY day, ct.id`)
	if err != nil {
		return nil, fmt.Errorf("leases by type and date: %w", err)
	}
	return out, nil
}
