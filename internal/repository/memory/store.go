// Package memory provides an in-process implementation of repository.Store
// used for local development (STORE_DRIVER=memory) and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/repository"
)

var _ repository.Store = (*Store)(nil)
var _ repository.Tx = (*tx)(nil)

// Store keeps users, cell types, cells and leases in slices indexed by
// id-1.  Transactions are serialized by mu and run against a private copy
// of the state that replaces the shared one only when fn succeeds.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	users     []model.User
	cellTypes []model.CellType
	cells     []model.Cell
	leases    []model.Lease
	tokens    []model.Token
	lastToken uint64 // tokens can be deleted, so ids are not positional
}

func (s *state) clone() *state {
	return &state{
		users:     append([]model.User(nil), s.users...),
		cellTypes: append([]model.CellType(nil), s.cellTypes...),
		cells:     append([]model.Cell(nil), s.cells...),
		leases:    append([]model.Lease(nil), s.leases...),
		tokens:    append([]model.Token(nil), s.tokens...),
		lastToken: s.lastToken,
	}
}

// New returns an empty store.
func New() *Store { return &Store{state: &state{}} }

// WithTx runs fn with exclusive access to a snapshot of the store.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.state = work
	return nil
}

type tx struct {
	st *state
}

func notFound(op string) error { return fmt.Errorf("%s: %w", op, repository.ErrNotFound) }

// ---- users ----

func (t *tx) CreateUser(_ context.Context, u *model.User) error {
	for _, x := range t.st.users {
		if x.Email == u.Email {
			return fmt.Errorf("create user: %w", repository.ErrDuplicate)
		}
	}
	u.ID = uint64(len(t.st.users) + 1)
	t.st.users = append(t.st.users, *u)
	return nil
}

func (t *tx) user(id uint64) (*model.User, bool) {
	if id == 0 || id > uint64(len(t.st.users)) {
		return nil, false
	}
	return &t.st.users[id-1], true
}

func (t *tx) UserByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := t.user(id)
	if !ok {
		return model.User{}, notFound("get user")
	}
	return *u, nil
}

func (t *tx) UserByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range t.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, notFound("get user by email")
}

func (t *tx) ListUsers(context.Context) ([]model.User, error) {
	return append([]model.User{}, t.st.users...), nil
}

func (t *tx) UpdateUserName(_ context.Context, id uint64, firstName, lastName string) error {
	u, ok := t.user(id)
	if !ok {
		return notFound("update user")
	}
	u.FirstName, u.LastName = firstName, lastName
	return nil
}

func (t *tx) UpdateUserPassword(_ context.Context, id uint64, passwordHash string) error {
	u, ok := t.user(id)
	if !ok {
		return notFound("update password")
	}
	u.PasswordHash = passwordHash
	return nil
}

func (t *tx) SetUserAdmin(_ context.Context, id uint64, isAdmin bool) error {
	u, ok := t.user(id)
	if !ok {
		return notFound("set admin")
	}
	u.IsAdmin = isAdmin
	return nil
}

// ---- cells ----

func (t *tx) ListCellTypes(context.Context) ([]model.CellType, error) {
	return append([]model.CellType{}, t.st.cellTypes...), nil
}

func (t *tx) CellTypeByID(_ context.Context, id uint64) (model.CellType, error) {
	if id == 0 || id > uint64(len(t.st.cellTypes)) {
		return model.CellType{}, notFound("get cell type")
	}
	return t.st.cellTypes[id-1], nil
}

func (t *tx) CreateCellType(_ context.Context, ct *model.CellType) error {
	for _, x := range t.st.cellTypes {
		if strings.EqualFold(x.Name, ct.Name) {
			return fmt.Errorf("create cell type: %w", repository.ErrDuplicate)
		}
	}
	ct.ID = uint64(len(t.st.cellTypes) + 1)
	t.st.cellTypes = append(t.st.cellTypes, *ct)
	return nil
}

func (t *tx) CreateCell(_ context.Context, c *model.Cell) error {
	if c.TypeID == 0 || c.TypeID > uint64(len(t.st.cellTypes)) {
		return fmt.Errorf("create cell: unknown type %d", c.TypeID)
	}
	c.ID = uint64(len(t.st.cells) + 1)
	t.st.cells = append(t.st.cells, *c)
	return nil
}

func (t *tx) cell(id uint64) (*model.Cell, bool) {
	if id == 0 || id > uint64(len(t.st.cells)) {
		return nil, false
	}
	return &t.st.cells[id-1], true
}

func (t *tx) CellByID(_ context.Context, id uint64) (model.Cell, error) {
	c, ok := t.cell(id)
	if !ok {
		return model.Cell{}, notFound("get cell")
	}
	return *c, nil
}

func (t *tx) AvailableCellTypeIDs(context.Context) ([]uint64, error) {
	seen := map[uint64]bool{}
	ids := []uint64{}
	for _, c := range t.st.cells {
		if c.Free() && !seen[c.TypeID] {
			seen[c.TypeID] = true
			ids = append(ids, c.TypeID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *tx) ClaimFreeCell(_ context.Context, typeID uint64) (model.Cell, error) {
	for i := range t.st.cells {
		c := &t.st.cells[i]
		if c.TypeID == typeID && c.Free() {
			c.IsTaken = true
			return *c, nil
		}
	}
	return model.Cell{}, notFound("claim cell")
}

func (t *tx) MarkCellEmpty(_ context.Context, id uint64) error {
	c, ok := t.cell(id)
	if !ok || c.IsEmpty {
		return fmt.Errorf("open cell: %w", repository.ErrConflict)
	}
	c.IsEmpty = true
	return nil
}

func (t *tx) ReleaseCell(_ context.Context, id uint64) error {
	if c, ok := t.cell(id); ok {
		c.IsTaken, c.IsEmpty = false, false
	}
	return nil
}

// ---- leases ----

func (t *tx) CreateLease(_ context.Context, l *model.Lease) error {
	l.ID = uint64(len(t.st.leases) + 1)
	l.IsReturned = false
	l.EndTime = nil
	t.st.leases = append(t.st.leases, *l)
	return nil
}

func (t *tx) lease(id uint64) (*model.Lease, bool) {
	if id == 0 || id > uint64(len(t.st.leases)) {
		return nil, false
	}
	return &t.st.leases[id-1], true
}

func (t *tx) SetLeaseToken(_ context.Context, leaseID, tokenID uint64) error {
	l, ok := t.lease(leaseID)
	if !ok {
		return notFound("set lease token")
	}
	id := tokenID
	l.TokenID = &id
	return nil
}

func (t *tx) LeaseByID(_ context.Context, id uint64) (model.Lease, error) {
	l, ok := t.lease(id)
	if !ok {
		return model.Lease{}, notFound("get lease")
	}
	return *l, nil
}

func (t *tx) CloseLease(_ context.Context, id uint64, endTime time.Time) error {
	l, ok := t.lease(id)
	if !ok || l.IsReturned {
		return fmt.Errorf("close lease: %w", repository.ErrConflict)
	}
	end := endTime
	l.IsReturned = true
	l.EndTime = &end
	return nil
}

func (t *tx) LeasesByUser(_ context.Context, userID uint64, withClosed bool) ([]model.Lease, error) {
	out := []model.Lease{}
	for _, l := range t.st.leases {
		if l.UserID == userID && (withClosed || l.Open()) {
			out = append(out, l)
		}
	}
	return out, nil
}

// ---- tokens ----

func (t *tx) CreateToken(_ context.Context, tok *model.Token) error {
	for _, x := range t.st.tokens {
		if x.Active && x.Kind == tok.Kind && x.Value == tok.Value {
			return fmt.Errorf("create token: %w", repository.ErrDuplicate)
		}
	}
	t.st.lastToken++
	tok.ID = t.st.lastToken
	tok.Active = true
	t.st.tokens = append(t.st.tokens, *tok)
	return nil
}

func (t *tx) ActiveSession(_ context.Context, hash string, now time.Time) (model.Token, error) {
	for _, x := range t.st.tokens {
		if x.Kind == model.TokenSession && x.Active && x.Value == hash && !x.Expired(now) {
			return x, nil
		}
	}
	return model.Token{}, notFound("get session")
}

func (t *tx) LatestPickupCode(_ context.Context, code string) (model.Token, error) {
	var (
		best  model.Token
		found bool
	)
	for _, x := range t.st.tokens {
		if x.Kind != model.TokenPickup || x.Value != code {
			continue
		}
		// active wins, then newest
		if !found || (x.Active && !best.Active) || (x.Active == best.Active && x.ID > best.ID) {
			best, found = x, true
		}
	}
	if !found {
		return model.Token{}, notFound("get pickup code")
	}
	return best, nil
}

func (t *tx) RetireToken(_ context.Context, id uint64) error {
	for i := range t.st.tokens {
		if t.st.tokens[i].ID == id {
			t.st.tokens[i].Active = false
		}
	}
	return nil
}

func (t *tx) RetireUserSessions(_ context.Context, userID, keepID uint64) error {
	for i := range t.st.tokens {
		x := &t.st.tokens[i]
		if x.Kind == model.TokenSession && x.UserID != nil && *x.UserID == userID && x.ID != keepID {
			x.Active = false
		}
	}
	return nil
}

func (t *tx) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	kept := t.st.tokens[:0:0]
	var n int64
	for _, x := range t.st.tokens {
		if x.Kind == model.TokenSession && x.Expired(now) {
			n++
			continue
		}
		kept = append(kept, x)
	}
	t.st.tokens = kept
	return n, nil
}
