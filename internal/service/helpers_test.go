package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/queue"
	"github.com/iliyamo/equipment-locker/internal/repository"
	"github.com/iliyamo/equipment-locker/internal/repository/memory"
)

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.LeaseEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.LeaseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// countingMetrics counts calls per observation.
type countingMetrics struct {
	mu         sync.Mutex
	created    int
	failures   map[string]int
	opened     int
	returned   int
	collisions int
}

func (m *countingMetrics) LeaseCreated(time.Duration) { m.mu.Lock(); m.created++; m.mu.Unlock() }
func (m *countingMetrics) CellOpened()                { m.mu.Lock(); m.opened++; m.mu.Unlock() }
func (m *countingMetrics) LeaseReturned()             { m.mu.Lock(); m.returned++; m.mu.Unlock() }
func (m *countingMetrics) CodeCollision()             { m.mu.Lock(); m.collisions++; m.mu.Unlock() }
func (m *countingMetrics) AllocationFailed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = map[string]int{}
	}
	m.failures[reason]++
}

// panicStore fails the test if any transaction is started.
type panicStore struct{}

func (panicStore) WithTx(context.Context, func(repository.Tx) error) error {
	panic("store must not be touched")
}

// hookStore lets a test replace individual Tx methods.
type hookStore struct {
	*memory.Store
	createToken func(ctx context.Context, tx repository.Tx, t *model.Token) error
}

type hookTx struct {
	repository.Tx
	s *hookStore
}

func (h *hookStore) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	return h.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(&hookTx{Tx: tx, s: h})
	})
}

func (t *hookTx) CreateToken(ctx context.Context, tok *model.Token) error {
	if t.s.createToken != nil {
		return t.s.createToken(ctx, t.Tx, tok)
	}
	return t.Tx.CreateToken(ctx, tok)
}

// gateStore holds the first n transactions after they finish until all n
// have finished, so n goroutines observe the same pre-state.
type gateStore struct {
	repository.Store
	mu    sync.Mutex
	n     int
	done  int
	ready chan struct{}
}

func newGateStore(inner repository.Store, n int) *gateStore {
	return &gateStore{Store: inner, n: n, ready: make(chan struct{})}
}

func (g *gateStore) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	err := g.Store.WithTx(ctx, fn)
	g.mu.Lock()
	g.done++
	gated := g.done <= g.n
	if g.done == g.n {
		close(g.ready)
	}
	g.mu.Unlock()
	if gated {
		<-g.ready
	}
	return err
}

type env struct {
	store     repository.Store
	tokens    *Tokens
	inventory *Inventory
	leases    *Leases
	users     *Users
	stats     *Stats
	events    *recordingPublisher
	metrics   *countingMetrics
	now       time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithStore(t, memory.New())
}

func newEnvWithStore(t *testing.T, store repository.Store) *env {
	t.Helper()
	e := &env{
		store:   store,
		events:  &recordingPublisher{},
		metrics: &countingMetrics{},
		now:     time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC),
	}
	opts := Options{Events: e.events, Metrics: e.metrics, Now: func() time.Time { return e.now }}
	e.tokens = NewTokens(store, time.Hour, opts)
	e.inventory = NewInventory(store, opts)
	e.leases = NewLeases(store, e.inventory, e.tokens, opts)
	e.users = NewUsers(store, e.tokens, 4, "root@locker.test", opts)
	e.stats = NewStats(store)
	return e
}

var admin = model.User{ID: 999, IsAdmin: true}

// seed creates a cell type with n cells and returns the type id.
func (e *env) seed(t *testing.T, name string, n int) uint64 {
	t.Helper()
	ct, err := e.inventory.AddCellType(context.Background(), admin, name)
	if err != nil {
		t.Fatalf("add type: %v", err)
	}
	if n > 0 {
		if _, err := e.inventory.AddCells(context.Background(), admin, ct.ID, n); err != nil {
			t.Fatalf("add cells: %v", err)
		}
	}
	return ct.ID
}

func (e *env) register(t *testing.T, email string) model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), RegisterInput{
		Email: email, FirstName: "Test", LastName: "User", Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func (e *env) cell(t *testing.T, id uint64) model.Cell {
	t.Helper()
	var c model.Cell
	err := e.store.WithTx(context.Background(), func(tx repository.Tx) error {
		var err error
		c, err = tx.CellByID(context.Background(), id)
		return err
	})
	if err != nil {
		t.Fatalf("cell %d: %v", id, err)
	}
	return c
}

func (e *env) lease(t *testing.T, id uint64) model.Lease {
	t.Helper()
	var l model.Lease
	err := e.store.WithTx(context.Background(), func(tx repository.Tx) error {
		var err error
		l, err = tx.LeaseByID(context.Background(), id)
		return err
	})
	if err != nil {
		t.Fatalf("lease %d: %v", id, err)
	}
	return l
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}
