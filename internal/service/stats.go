package service

import (
	"context"

	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/repository"
)

// Stats serves the admin analytics.  Every method requires an admin actor.
type Stats struct {
	store repository.Store
}

func NewStats(store repository.Store) *Stats { return &Stats{store: store} }

func query[T any](ctx context.Context, store repository.Store, actor model.User, fn func(repository.Tx) ([]T, error)) ([]T, error) {
	if !actor.IsAdmin {
		return nil, ErrNotAdmin
	}
	var out []T
	err := store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = fn(tx)
		return err
	})
	return out, err
}

func (s *Stats) UserGrowth(ctx context.Context, actor model.User) ([]model.DailyCount, error) {
	return query(ctx, s.store, actor, func(tx repository.Tx) ([]model.DailyCount, error) { return tx.UserGrowth(ctx) })
}

func (s *Stats) LeaseGrowth(ctx context.Context, actor model.User) ([]model.DailyCount, error) {
	return query(ctx, s.store, actor, func(tx repository.Tx) ([]model.DailyCount, error) { return tx.LeaseGrowth(ctx) })
}

func (s *Stats) EquipmentFreeRatio(ctx context.Context, actor model.User) ([]model.TypeRatio, error) {
	return query(ctx, s.store, actor, func(tx repository.Tx) ([]model.TypeRatio, error) { return tx.EquipmentFreeRatio(ctx) })
}

func (s *Stats) LeasesByType(ctx context.Context, actor model.User) ([]model.TypeCount, error) {
	return query(ctx, s.store, actor, func(tx repository.Tx) ([]model.TypeCount, error) { return tx.LeasesByType(ctx) })
}

func (s *Stats) LeasesByTypeAndDate(ctx context.Context, actor model.User) ([]model.TypeDateCount, error) {
	return query(ctx, s.store, actor, func(tx repository.Tx) ([]model.TypeDateCount, error) { return tx.LeasesByTypeAndDate(ctx) })
}
