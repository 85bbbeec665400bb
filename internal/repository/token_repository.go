package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/equipment-locker/internal/model"
)

const tokenColumns = `id, kind, value, user_id, lease_id, expires_at, active, created_at`

// CreateToken inserts an active token.  The unique index over
// (kind, active_value) rejects a second active token with the same value.
func (r *mysqlTx) CreateToken(ctx context.Context, t *model.Token) error {
	var expires any
	if t.ExpiresAt != nil {
		expires = t.ExpiresAt.UTC()
	}
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO tokens (kind, value, user_id, lease_id, expires_at, active, created_at) VALUES (?,?,?,?,?,1,?)`,
		t.Kind, t.Value, t.UserID, t.LeaseID, expires, t.CreatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create token: %w", ErrDuplicate)
		}
		return fmt.Errorf("create token: %w", err)
	}
	id, err := lastInsertID("create token", res)
	if err != nil {
		return err
	}
	t.ID = id
	t.Active = true
	return nil
}

func (r *mysqlTx) ActiveSession(ctx context.Context, hash string, now time.Time) (model.Token, error) {
	var t model.Token
	err := r.tx.GetContext(ctx, &t,
		`SELECT `+tokenColumns+` FROM tokens
		 WHERE kind = 'session' AND active_value = ? AND expires_at > ?
		 LIMIT 1`, hash, now.UTC())
	if err != nil {
		return model.Token{}, notFound("get session", err)
	}
	return t, nil
}

// LatestPickupCode prefers the active code; otherwise the most recently
// retired one, so a code whose lease was closed is still recognized.
func (r *mysqlTx) LatestPickupCode(ctx context.Context, code string) (model.Token, error) {
	var t model.Token
	err := r.tx.GetContext(ctx, &t,
		`SELECT `+tokenColumns+` FROM tokens
		 WHERE kind = 'pickup' AND value = ?
		 ORDER BY active DESC, id DESC
		 LIMIT 1`, code)
	if err != nil {
		return model.Token{}, notFound("get pickup code", err)
	}
	return t, nil
}

func (r *mysqlTx) RetireToken(ctx context.Context, id uint64) error {
	if _, err := r.tx.ExecContext(ctx, `UPDATE tokens SET active = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("retire token: %w", err)
	}
	return nil
}

func (r *mysqlTx) RetireUserSessions(ctx context.Context, userID, keepID uint64) error {
	_, err := r.tx.ExecContext(ctx,
		`UPDATE tokens SET active = 0 WHERE kind = 'session' AND user_id = ? AND active = 1 AND id <> ?`,
		userID, keepID)
	if err != nil {
		return fmt.Errorf("retire sessions: %w", err)
	}
	return nil
}

func (r *mysqlTx) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.tx.ExecContext(ctx,
		`DELETE FROM tokens WHERE kind = 'session' AND expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}
