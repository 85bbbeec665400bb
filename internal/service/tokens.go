package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/repository"
	"github.com/iliyamo/equipment-locker/internal/utils"
)

// maxCodeAttempts bounds pickup-code regeneration after collisions with
// active codes.
const maxCodeAttempts = 20

// Session is a resolved session token.
type Session struct {
	User      model.User
	TokenID   uint64
	ExpiresAt time.Time
}

// Tokens issues and resolves session tokens and pickup codes.
type Tokens struct {
	store   repository.Store
	ttl     time.Duration
	opts    Options
	newCode func() (string, error)
}

// NewTokens returns a token service whose sessions live for ttl.
func NewTokens(store repository.Store, ttl time.Duration, opts Options) *Tokens {
	return &Tokens{store: store, ttl: ttl, opts: opts.withDefaults(), newCode: utils.NewPickupCode}
}

// IssueSession creates a session for userID inside tx and returns the raw
// token, which is not recoverable afterwards.
func (t *Tokens) IssueSession(ctx context.Context, tx repository.Tx, userID uint64) (string, model.Token, error) {
	raw, err := utils.NewSessionToken()
	if err != nil {
		return "", model.Token{}, fmt.Errorf("generate session token: %w", err)
	}
	now := t.opts.Now()
	exp := now.Add(t.ttl)
	uid := userID
	tok := model.Token{
		Kind:      model.TokenSession,
		Value:     utils.HashToken(raw),
		UserID:    &uid,
		ExpiresAt: &exp,
		CreatedAt: now,
	}
	if err := tx.CreateToken(ctx, &tok); err != nil {
		return "", model.Token{}, fmt.Errorf("store session: %w", err)
	}
	return raw, tok, nil
}

// IssuePickupCode creates an active pickup code for leaseID inside tx.
// A value already held by another active code is regenerated; after
// maxCodeAttempts collisions ErrCodeSpaceExhausted is returned.
func (t *Tokens) IssuePickupCode(ctx context.Context, tx repository.Tx, leaseID uint64) (model.Token, error) {
	lid := leaseID
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := t.newCode()
		if err != nil {
			return model.Token{}, fmt.Errorf("generate pickup code: %w", err)
		}
		tok := model.Token{
			Kind:      model.TokenPickup,
			Value:     code,
			LeaseID:   &lid,
			CreatedAt: t.opts.Now(),
		}
		err = tx.CreateToken(ctx, &tok)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return model.Token{}, fmt.Errorf("store pickup code: %w", err)
		}
		t.opts.Metrics.CodeCollision()
		t.opts.Logger.Debug().Int("attempt", attempt).Uint64("lease_id", leaseID).Msg("pickup code collision")
	}
	return model.Token{}, ErrCodeSpaceExhausted
}

// ResolveSession maps a raw bearer token to its user.
func (t *Tokens) ResolveSession(ctx context.Context, raw string) (Session, error) {
	if !utils.WellFormedSessionToken(raw) {
		return Session{}, ErrSessionMalformed
	}
	var s Session
	err := t.store.WithTx(ctx, func(tx repository.Tx) error {
		tok, err := tx.ActiveSession(ctx, utils.HashToken(raw), t.opts.Now())
		if err != nil {
			return sessionErr(err)
		}
		if tok.UserID == nil {
			return ErrSessionNotFound
		}
		u, err := tx.UserByID(ctx, *tok.UserID)
		if err != nil {
			return sessionErr(err)
		}
		s = Session{User: u, TokenID: tok.ID}
		if tok.ExpiresAt != nil {
			s.ExpiresAt = *tok.ExpiresAt
		}
		return nil
	})
	return s, err
}

func sessionErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return wrap(ErrSessionNotFound, err)
	}
	return err
}

// ResolvePickupCode returns the lease and code token behind code.  The
// format is checked before the store is touched.
func (t *Tokens) ResolvePickupCode(ctx context.Context, tx repository.Tx, code string) (model.Lease, model.Token, error) {
	if !utils.WellFormedPickupCode(code) {
		return model.Lease{}, model.Token{}, ErrInvalidCode
	}
	tok, err := tx.LatestPickupCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Lease{}, model.Token{}, wrap(ErrInvalidCode, err)
		}
		return model.Lease{}, model.Token{}, err
	}
	if tok.LeaseID == nil {
		return model.Lease{}, model.Token{}, ErrInvalidCode
	}
	l, err := tx.LeaseByID(ctx, *tok.LeaseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Lease{}, model.Token{}, wrap(ErrInvalidCode, err)
		}
		return model.Lease{}, model.Token{}, err
	}
	return l, tok, nil
}

// Revoke retires a single session.
func (t *Tokens) Revoke(ctx context.Context, tokenID uint64) error {
	return t.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.RetireToken(ctx, tokenID)
	})
}

// PurgeExpiredSessions deletes session rows past their expiry.
func (t *Tokens) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	var n int64
	err := t.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		n, err = tx.DeleteExpiredSessions(ctx, t.opts.Now())
		return err
	})
	return n, err
}
