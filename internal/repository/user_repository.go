package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/equipment-locker/internal/model"
)

const userColumns = `id, email, first_name, last_name, password_hash, is_admin, created_at`

// CreateUser inserts user and populates its ID.
func (r *mysqlTx) CreateUser(ctx context.Context, u *model.User) error {
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO users (email, first_name, last_name, password_hash, is_admin, created_at) VALUES (?,?,?,?,?,?)`,
		u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsAdmin, u.CreatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create user: %w", ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	id, err := lastInsertID("create user", res)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

// UserByID fetches a user by id.
func (r *mysqlTx) UserByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.tx.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id)
	if err != nil {
		return model.User{}, notFound("get user", err)
	}
	return u, nil
}

// UserByEmail fetches a user by normalized email.
func (r *mysqlTx) UserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.tx.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email)
	if err != nil {
		return model.User{}, notFound("get user by email", err)
	}
	return u, nil
}

func (r *mysqlTx) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := r.tx.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *mysqlTx) UpdateUserName(ctx context.Context, id uint64, firstName, lastName string) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE users SET first_name=?, last_name=? WHERE id=?`, firstName, lastName, id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return r.affectedOrMissing(ctx, "update user", res, id)
}

func (r *mysqlTx) UpdateUserPassword(ctx context.Context, id uint64, passwordHash string) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return r.affectedOrMissing(ctx, "update password", res, id)
}

func (r *mysqlTx) SetUserAdmin(ctx context.Context, id uint64, isAdmin bool) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE users SET is_admin=? WHERE id=?`, isAdmin, id)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return r.affectedOrMissing(ctx, "set admin", res, id)
}

// affectedOrMissing distinguishes "no such user" from "nothing changed":
// MySQL reports zero affected rows when an UPDATE writes identical values.
func (r *mysqlTx) affectedOrMissing(ctx context.Context, op string, res interface{ RowsAffected() (int64, error) }, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id=?)`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
