package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/equipment-locker/internal/database/testdb"
	"github.com/iliyamo/equipment-locker/internal/model"
)

// These tests run against TEST_MYSQL_DSN and are skipped without it.

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newMySQL(t *testing.T) *MySQLStore {
	t.Helper()
	return NewMySQLStore(testdb.Open(t, "repository"))
}

// inTx runs fn in its own transaction and fails the test on error.
func inTx(t *testing.T, s Store, fn func(tx Tx) error) {
	t.Helper()
	if err := s.WithTx(context.Background(), fn); err != nil {
		t.Fatal(err)
	}
}

func seedUser(t *testing.T, s Store, email string) model.User {
	t.Helper()
	u := model.User{Email: email, FirstName: "Ada", LastName: "L", PasswordHash: "x", CreatedAt: epoch}
	inTx(t, s, func(tx Tx) error { return tx.CreateUser(context.Background(), &u) })
	return u
}

func seedCells(t *testing.T, s Store, name string, n int) (model.CellType, []model.Cell) {
	t.Helper()
	ct := model.CellType{Name: name}
	var cells []model.Cell
	inTx(t, s, func(tx Tx) error {
		ctx := context.Background()
		if err := tx.CreateCellType(ctx, &ct); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			c := model.Cell{TypeID: ct.ID}
			if err := tx.CreateCell(ctx, &c); err != nil {
				return err
			}
			cells = append(cells, c)
		}
		return nil
	})
	return ct, cells
}

func seedLease(t *testing.T, s Store, userID, cellID uint64) model.Lease {
	t.Helper()
	l := model.Lease{UserID: userID, CellID: cellID, StartTime: epoch}
	inTx(t, s, func(tx Tx) error { return tx.CreateLease(context.Background(), &l) })
	return l
}

func TestMySQLClaimFreeCellTakesLowestID(t *testing.T) {
	s := newMySQL(t)
	ctx := context.Background()
	ct, cells := seedCells(t, s, "small", 2)

	inTx(t, s, func(tx Tx) error {
		c, err := tx.ClaimFreeCell(ctx, ct.ID)
		if err != nil {
			return err
		}
		if c.ID != cells[0].ID || !c.IsTaken {
			t.Errorf("claimed %+v, want cell %d taken", c, cells[0].ID)
		}
		return nil
	})
	inTx(t, s, func(tx Tx) error {
		c, err := tx.ClaimFreeCell(ctx, ct.ID)
		if err != nil {
			return err
		}
		if c.ID != cells[1].ID {
			t.Errorf("second claim got cell %d, want %d", c.ID, cells[1].ID)
		}
		return nil
	})
	err := s.WithTx(ctx, func(tx Tx) error {
		_, err := tx.ClaimFreeCell(ctx, ct.ID)
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("claim with no free cell = %v", err)
	}
	inTx(t, s, func(tx Tx) error {
		ids, err := tx.AvailableCellTypeIDs(ctx)
		if err != nil {
			return err
		}
		if len(ids) != 0 {
			t.Errorf("available types = %v", ids)
		}
		return nil
	})
}

func TestMySQLConcurrentClaimsSkipLockedRows(t *testing.T) {
	s := newMySQL(t)
	ctx := context.Background()
	ct, cells := seedCells(t, s, "medium", 5)

	const workers = 8
	var (
		claimed sync.WaitGroup
		mu      sync.Mutex
		got     []uint64
		missed  int
		done    sync.WaitGroup
	)
	claimed.Add(workers)
	done.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer done.Done()
			err := s.WithTx(ctx, func(tx Tx) error {
				c, err := tx.ClaimFreeCell(ctx, ct.ID)
				// Every transaction stays open until all have tried,
				// so the claims overlap.
				claimed.Done()
				claimed.Wait()
				if err != nil {
					return err
				}
				mu.Lock()
				got = append(got, c.ID)
				mu.Unlock()
				return nil
			})
			if err != nil {
				mu.Lock()
				defer mu.Unlock()
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("claim: %v", err)
				}
				missed++
			}
		}()
	}
	done.Wait()

	if len(got) != len(cells) || missed != workers-len(cells) {
		t.Fatalf("claimed %v, missed %d", got, missed)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, c := range cells {
		if got[i] != c.ID {
			t.Fatalf("claimed %v, want every cell once", got)
		}
	}
}

func TestMySQLCellDoorStateConflicts(t *testing.T) {
	s := newMySQL(t)
	ctx := context.Background()
	_, cells := seedCells(t, s, "large", 1)
	id := cells[0].ID

	inTx(t, s, func(tx Tx) error { return tx.MarkCellEmpty(ctx, id) })
	err := s.WithTx(ctx, func(tx Tx) error { return tx.MarkCellEmpty(ctx, id) })
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second open = %v", err)
	}
	inTx(t, s, func(tx Tx) error {
		if err := tx.ReleaseCell(ctx, id); err != nil {
			return err
		}
		c, err := tx.CellByID(ctx, id)
		if err != nil {
			return err
		}
		if c.IsTaken || c.IsEmpty {
			t.Errorf("released cell = %+v", c)
		}
		return nil
	})
	inTx(t, s, func(tx Tx) error { return tx.MarkCellEmpty(ctx, id) })

	err = s.WithTx(ctx, func(tx Tx) error { return tx.MarkCellEmpty(ctx, 9999) })
	if !errors.Is(err, ErrConflict) {
		t.Errorf("open missing cell = %v", err)
	}
}

func TestMySQLCloseLeaseOnce(t *testing.T) {
	s := newMySQL(t)
	ctx := context.Background()
	u := seedUser(t, s, "lease@locker.test")
	_, cells := seedCells(t, s, "small", 2)
	first := seedLease(t, s, u.ID, cells[0].ID)
	second := seedLease(t, s, u.ID, cells[1].ID)

	end := epoch.Add(time.Hour)
	inTx(t, s, func(tx Tx) error { return tx.CloseLease(ctx, first.ID, end) })
	err := s.WithTx(ctx, func(tx Tx) error { return tx.CloseLease(ctx, first.ID, end.Add(time.Hour)) })
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second close = %v", err)
	}

	inTx(t, s, func(tx Tx) error {
		l, err := tx.LeaseByID(ctx, first.ID)
		if err != nil {
			return err
		}
		if !l.IsReturned || l.EndTime == nil || !l.EndTime.Equal(end) {
			t.Errorf("closed lease = %+v", l)
		}

		open, err := tx.LeasesByUser(ctx, u.ID, false)
		if err != nil {
			return err
		}
		if len(open) != 1 || open[0].ID != second.ID {
			t.Errorf("open leases = %+v", open)
		}
		all, err := tx.LeasesByUser(ctx, u.ID, true)
		if err != nil {
			return err
		}
		if len(all) != 2 || all[0].ID != first.ID || all[1].ID != second.ID {
			t.Errorf("all leases = %+v", all)
		}
		return nil
	})

	err = s.WithTx(ctx, func(tx Tx) error {
		_, err := tx.LeaseByID(ctx, 9999)
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing lease = %v", err)
	}
}

func TestMySQLPickupCodeReissueAfterRetire(t *testing.T) {
	s := newMySQL(t)
	ctx := context.Background()
	u := seedUser(t, s, "codes@locker.test")
	_, cells := seedCells(t, s, "small", 2)
	l1 := seedLease(t, s, u.ID, cells[0].ID)
	l2 := seedLease(t, s, u.ID, cells[1].ID)

	pickup := func(leaseID uint64) *model.Token {
		return &model.Token{Kind: model.TokenPickup, Value: "4821", LeaseID: &leaseID, CreatedAt: epoch}
	}
	latest := func() model.Token {
		t.Helper()
		var tok model.Token
		inTx(t, s, func(tx Tx) error {
			var err error
			tok, err = tx.LatestPickupCode(ctx, "4821")
			return err
		})
		return tok
	}

	first := pickup(l1.ID)
	inTx(t, s, func(tx Tx) error { return tx.CreateToken(ctx, first) })

	err := s.WithTx(ctx, func(tx Tx) error { return tx.CreateToken(ctx, pickup(l2.ID)) })
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second active code = %v", err)
	}

	// A session may carry the same value as a pickup code.
	inTx(t, s, func(tx Tx) error {
		return tx.CreateToken(ctx, &model.Token{Kind: model.TokenSession, Value: "4821", UserID: &u.ID, CreatedAt: epoch})
	})

	inTx(t, s, func(tx Tx) error { return tx.RetireToken(ctx, first.ID) })
	if tok := latest(); tok.ID != first.ID || tok.Active {
		t.Fatalf("latest after retire = %+v", tok)
	}

	second := pickup(l2.ID)
	inTx(t, s, func(tx Tx) error { return tx.CreateToken(ctx, second) })
	if second.ID == first.ID {
		t.Fatal("reissued code reused the token id")
	}
	if tok := latest(); tok.ID != second.ID || !tok.Active || *tok.LeaseID != l2.ID {
		t.Fatalf("latest after reissue = %+v", tok)
	}

	inTx(t, s, func(tx Tx) error { return tx.RetireToken(ctx, second.ID) })
	if tok := latest(); tok.ID != second.ID || tok.Active {
		t.Fatalf("latest with both retired = %+v", tok)
	}

	err = s.WithTx(ctx, func(tx Tx) error {
		_, err := tx.LatestPickupCode(ctx, "0000")
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown code = %v", err)
	}
}

func TestMySQLSessionsExpireAndRetire(t *testing.T) {
	s := newMySQL(t)
	ctx := context.Background()
	u := seedUser(t, s, "sessions@locker.test")

	session := func(hash string, ttl time.Duration) *model.Token {
		exp := epoch.Add(ttl)
		return &model.Token{Kind: model.TokenSession, Value: hash, UserID: &u.ID, ExpiresAt: &exp, CreatedAt: epoch}
	}
	keep, other, stale := session("keep", time.Hour), session("other", time.Hour), session("stale", time.Minute)
	inTx(t, s, func(tx Tx) error {
		for _, tok := range []*model.Token{keep, other, stale} {
			if err := tx.CreateToken(ctx, tok); err != nil {
				return err
			}
		}
		return nil
	})

	now := epoch.Add(30 * time.Minute)
	inTx(t, s, func(tx Tx) error {
		if _, err := tx.ActiveSession(ctx, "other", now); err != nil {
			return err
		}
		if _, err := tx.ActiveSession(ctx, "stale", epoch.Add(time.Minute)); !errors.Is(err, ErrNotFound) {
			t.Errorf("session at expiry = %v", err)
		}
		return tx.RetireUserSessions(ctx, u.ID, keep.ID)
	})
	inTx(t, s, func(tx Tx) error {
		if _, err := tx.ActiveSession(ctx, "other", now); !errors.Is(err, ErrNotFound) {
			t.Errorf("retired session = %v", err)
		}
		if _, err := tx.ActiveSession(ctx, "keep", now); err != nil {
			t.Errorf("kept session = %v", err)
		}
		n, err := tx.DeleteExpiredSessions(ctx, now)
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("deleted %d expired sessions, want 1", n)
		}
		return nil
	})
}

func TestMySQLUserUpdatesWithUnchangedValues(t *testing.T) {
	s := newMySQL(t)
	ctx := context.Background()
	u := seedUser(t, s, "same@locker.test")

	inTx(t, s, func(tx Tx) error {
		if err := tx.UpdateUserName(ctx, u.ID, u.FirstName, u.LastName); err != nil {
			t.Errorf("same-value name update = %v", err)
		}
		if err := tx.SetUserAdmin(ctx, u.ID, false); err != nil {
			t.Errorf("same-value admin update = %v", err)
		}
		if err := tx.UpdateUserPassword(ctx, u.ID, u.PasswordHash); err != nil {
			t.Errorf("same-value password update = %v", err)
		}
		return nil
	})
	inTx(t, s, func(tx Tx) error {
		if err := tx.UpdateUserName(ctx, 9999, "a", "b"); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing user name update = %v", err)
		}
		if err := tx.SetUserAdmin(ctx, 9999, true); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing user admin update = %v", err)
		}
		return nil
	})
	inTx(t, s, func(tx Tx) error {
		if err := tx.UpdateUserName(ctx, u.ID, "Grace", "H"); err != nil {
			return err
		}
		got, err := tx.UserByID(ctx, u.ID)
		if err != nil {
			return err
		}
		if got.FirstName != "Grace" || got.LastName != "H" {
			t.Errorf("updated user = %+v", got)
		}
		return nil
	})
}

func TestMySQLDuplicateEmailAndRollback(t *testing.T) {
	s := newMySQL(t)
	ctx := context.Background()
	seedUser(t, s, "dup@locker.test")

	err := s.WithTx(ctx, func(tx Tx) error {
		return tx.CreateUser(ctx, &model.User{Email: "dup@locker.test", PasswordHash: "x", CreatedAt: epoch})
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate email = %v", err)
	}

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreateUser(ctx, &model.User{Email: "gone@locker.test", PasswordHash: "x", CreatedAt: epoch}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx = %v", err)
	}
	inTx(t, s, func(tx Tx) error {
		if _, err := tx.UserByEmail(ctx, "gone@locker.test"); !errors.Is(err, ErrNotFound) {
			t.Errorf("rolled back user = %v", err)
		}
		users, err := tx.ListUsers(ctx)
		if err != nil {
			return err
		}
		if len(users) != 1 {
			t.Errorf("users = %+v", users)
		}
		return nil
	})
}
