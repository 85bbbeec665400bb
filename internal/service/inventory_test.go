package service

import (
	"context"
	"testing"
)

func TestInventoryAdministration(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	plain := e.register(t, "a@locker.test")

	_, err := e.inventory.AddCellType(ctx, plain, "small")
	wantErr(t, err, ErrNotAdmin)

	ct, err := e.inventory.AddCellType(ctx, admin, " small ")
	if err != nil || ct.Name != "small" {
		t.Fatalf("add type = %+v, %v", ct, err)
	}
	_, err = e.inventory.AddCellType(ctx, admin, "small")
	wantErr(t, err, ErrCellTypeExists)
	_, err = e.inventory.AddCellType(ctx, admin, "  ")
	wantErr(t, err, ErrInvalidInput)

	_, err = e.inventory.AddCells(ctx, admin, 99, 1)
	wantErr(t, err, ErrCellTypeNotFound)
	_, err = e.inventory.AddCells(ctx, admin, ct.ID, 0)
	wantErr(t, err, ErrInvalidInput)

	cells, err := e.inventory.AddCells(ctx, admin, ct.ID, 3)
	if err != nil || len(cells) != 3 || cells[2].ID != 3 || cells[0].IsTaken {
		t.Fatalf("cells = %+v, %v", cells, err)
	}

	types, err := e.inventory.CellTypes(ctx)
	if err != nil || len(types) != 1 {
		t.Fatalf("types = %v, %v", types, err)
	}
}

func TestAvailableTypes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	small := e.seed(t, "small", 1)
	large := e.seed(t, "large", 2)
	e.seed(t, "none", 0)
	u := e.register(t, "a@locker.test")

	got, err := e.inventory.AvailableTypes(ctx)
	if err != nil || len(got) != 2 || got[0] != small || got[1] != large {
		t.Fatalf("available = %v, %v", got, err)
	}
	if _, err := e.leases.Create(ctx, u, small); err != nil {
		t.Fatal(err)
	}
	got, _ = e.inventory.AvailableTypes(ctx)
	if len(got) != 1 || got[0] != large {
		t.Fatalf("available after lease = %v", got)
	}
}

func TestStatsRequireAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	typeID := e.seed(t, "small", 2)
	u := e.register(t, "a@locker.test")
	if _, err := e.leases.Create(ctx, u, typeID); err != nil {
		t.Fatal(err)
	}

	_, err := e.stats.UserGrowth(ctx, u)
	wantErr(t, err, ErrNotAdmin)

	growth, err := e.stats.UserGrowth(ctx, admin)
	if err != nil || len(growth) != 1 || growth[0].Date != "2024-04-02" || growth[0].Count != 1 {
		t.Fatalf("user growth = %+v, %v", growth, err)
	}
	ratio, err := e.stats.EquipmentFreeRatio(ctx, admin)
	if err != nil || len(ratio) != 1 || ratio[0].Free != 1 || ratio[0].Total != 2 {
		t.Fatalf("ratio = %+v, %v", ratio, err)
	}
	byType, _ := e.stats.LeasesByType(ctx, admin)
	if len(byType) != 1 || byType[0].Count != 1 {
		t.Fatalf("by type = %+v", byType)
	}
	leaseGrowth, _ := e.stats.LeaseGrowth(ctx, admin)
	byDate, _ := e.stats.LeasesByTypeAndDate(ctx, admin)
	if len(leaseGrowth) != 1 || len(byDate) != 1 {
		t.Fatalf("lease growth = %+v, by date = %+v", leaseGrowth, byDate)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
		code string
	}{
		{ErrAlreadyOpen, KindConflict, "already_open"},
		{wrap(ErrNoCellAvailable, context.Canceled), KindResourceExhausted, "no_cell_available"},
		{&EmailTakenError{UserID: 3}, KindConflict, "email_taken"},
		{context.DeadlineExceeded, KindInternal, "internal"},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.kind {
			t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.kind)
		}
		if got := CodeOf(tc.err); got != tc.code {
			t.Errorf("CodeOf(%v) = %q, want %q", tc.err, got, tc.code)
		}
	}
}
