package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// MySQLStore implements Store on top of a MySQL connection pool.
type MySQLStore struct {
	db *sqlx.DB
}

// NewMySQLStore returns a MySQLStore bound to the provided database.
func NewMySQLStore(db *sqlx.DB) *MySQLStore { return &MySQLStore{db: db} }

// DB exposes the underlying pool for health checks.
func (s *MySQLStore) DB() *sqlx.DB { return s.db }

// WithTx runs fn inside a single database transaction.  The transaction
// is committed only when fn returns nil; every other exit path,
// including a panic inside fn, rolls it back.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// mysqlTx implements Tx.  Its methods are spread over the
// *_repository.go files, one file per entity.
type mysqlTx struct {
	tx *sqlx.Tx
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps everything else.
func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// expectOne turns a zero rows-affected result into sentinel.
func expectOne(op string, res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sentinel)
	}
	return nil
}

func lastInsertID(op string, res sql.Result) (uint64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return uint64(id), nil
}
