package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/repository"
	"github.com/iliyamo/equipment-locker/internal/utils"
)

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// LoginResult is returned by Authenticate.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      model.User
}

// Users manages accounts and their sessions.
type Users struct {
	store          repository.Store
	tokens         *Tokens
	bcryptCost     int
	bootstrapAdmin string
	opts           Options
}

// NewUsers returns the account service.  A registration whose normalized
// email equals bootstrapAdmin is created as admin.
func NewUsers(store repository.Store, tokens *Tokens, bcryptCost int, bootstrapAdmin string, opts Options) *Users {
	admin, _ := utils.NormalizeEmail(bootstrapAdmin)
	return &Users{
		store:          store,
		tokens:         tokens,
		bcryptCost:     bcryptCost,
		bootstrapAdmin: admin,
		opts:           opts.withDefaults(),
	}
}

// Register creates a user.  A taken email yields *EmailTakenError.
func (s *Users) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	email, err := utils.NormalizeEmail(in.Email)
	if err != nil {
		return model.User{}, wrap(ErrInvalidEmail, err)
	}
	if err := checkPassword(in.Password); err != nil {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		IsAdmin:      s.bootstrapAdmin != "" && email == s.bootstrapAdmin,
		CreatedAt:    s.opts.Now(),
	}
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		if existing, err := tx.UserByEmail(ctx, email); err == nil {
			return &EmailTakenError{UserID: existing.ID}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return tx.CreateUser(ctx, &u)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// lost a race with a concurrent registration
		return model.User{}, s.takenBy(ctx, email, err)
	}
	if err != nil {
		return model.User{}, err
	}
	s.opts.Logger.Info().Uint64("user_id", u.ID).Bool("admin", u.IsAdmin).Msg("user registered")
	return u, nil
}

func (s *Users) takenBy(ctx context.Context, email string, cause error) error {
	var id uint64
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		u, err := tx.UserByEmail(ctx, email)
		id = u.ID
		return err
	})
	if err != nil {
		return cause
	}
	return &EmailTakenError{UserID: id}
}

// Authenticate checks credentials and opens a session.  Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *Users) Authenticate(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var res LoginResult
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		u, err := tx.UserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBadCredentials
			}
			return err
		}
		if !utils.VerifyPassword(u.PasswordHash, password) {
			return ErrBadCredentials
		}
		raw, tok, err := s.tokens.IssueSession(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		res = LoginResult{Token: raw, ExpiresAt: *tok.ExpiresAt, User: u}
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}
	s.opts.Logger.Debug().Uint64("user_id", res.User.ID).Msg("user logged in")
	return res, nil
}

// Logout revokes the presented session.
func (s *Users) Logout(ctx context.Context, sess Session) error {
	return s.tokens.Revoke(ctx, sess.TokenID)
}

// Get returns any user by id.
func (s *Users) Get(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		u, err = tx.UserByID(ctx, id)
		return userErr(err)
	})
	return u, err
}

// List returns every user.  Admin only.
func (s *Users) List(ctx context.Context, actor model.User) ([]model.User, error) {
	if !actor.IsAdmin {
		return nil, ErrNotAdmin
	}
	var out []model.User
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListUsers(ctx)
		return err
	})
	return out, err
}

// SetAdmin grants or revokes admin rights.  Admin only.
func (s *Users) SetAdmin(ctx context.Context, actor model.User, id uint64, isAdmin bool) (model.User, error) {
	if !actor.IsAdmin {
		return model.User{}, ErrNotAdmin
	}
	var u model.User
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.SetUserAdmin(ctx, id, isAdmin); err != nil {
			return userErr(err)
		}
		var err error
		u, err = tx.UserByID(ctx, id)
		return userErr(err)
	})
	if err != nil {
		return model.User{}, err
	}
	s.opts.Logger.Info().Uint64("user_id", id).Uint64("by", actor.ID).Bool("admin", isAdmin).Msg("admin flag changed")
	return u, nil
}

// UpdateInfo changes a user's names.  Non-admins may only update
// themselves.
func (s *Users) UpdateInfo(ctx context.Context, actor model.User, id uint64, firstName, lastName string) (model.User, error) {
	if actor.ID != id && !actor.IsAdmin {
		return model.User{}, ErrForbiddenUpdate
	}
	var u model.User
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		err := tx.UpdateUserName(ctx, id, strings.TrimSpace(firstName), strings.TrimSpace(lastName))
		if err != nil {
			return userErr(err)
		}
		u, err = tx.UserByID(ctx, id)
		return userErr(err)
	})
	return u, err
}

// ChangePassword verifies the old password, stores the new one and
// revokes every other session of the user.
func (s *Users) ChangePassword(ctx context.Context, sess Session, oldPassword, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx repository.Tx) error {
		u, err := tx.UserByID(ctx, sess.User.ID)
		if err != nil {
			return userErr(err)
		}
		if !utils.VerifyPassword(u.PasswordHash, oldPassword) {
			return ErrWrongPassword
		}
		if err := tx.UpdateUserPassword(ctx, u.ID, hash); err != nil {
			return userErr(err)
		}
		return tx.RetireUserSessions(ctx, u.ID, sess.TokenID)
	})
}

func checkPassword(pw string) error {
	switch {
	case pw == "":
		return wrap(ErrInvalidInput, errors.New("password is required"))
	case len(pw) > utils.MaxPasswordBytes:
		return wrap(ErrInvalidInput, fmt.Errorf("password is longer than %d bytes", utils.MaxPasswordBytes))
	}
	return nil
}

func userErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return wrap(ErrUserNotFound, err)
	}
	return err
}
