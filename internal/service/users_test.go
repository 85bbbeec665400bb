package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRegisterNormalizesEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, err := e.users.Register(ctx, RegisterInput{Email: " Foo@Bar.com ", FirstName: "Foo", LastName: "Bar", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "foo@bar.com" || u.IsAdmin || u.PasswordHash == "pw" {
		t.Fatalf("user = %+v", u)
	}

	_, err = e.users.Register(ctx, RegisterInput{Email: "FOO@bar.com", Password: "other"})
	wantErr(t, err, ErrEmailTaken)
	var taken *EmailTakenError
	if !errors.As(err, &taken) || taken.UserID != u.ID {
		t.Fatalf("err = %#v, want EmailTakenError{%d}", err, u.ID)
	}
	if KindOf(err) != KindConflict {
		t.Errorf("kind = %v", KindOf(err))
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	_, err := e.users.Register(context.Background(), RegisterInput{Email: "nope", Password: "pw"})
	wantErr(t, err, ErrInvalidEmail)
	if KindOf(err) != KindInvalidInput {
		t.Errorf("kind = %v", KindOf(err))
	}
	_, err = e.users.Register(context.Background(), RegisterInput{Email: "a@b.co"})
	wantErr(t, err, ErrInvalidInput)
}

func TestPasswordLongerThanBcryptLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	// 40 runes but 80 bytes
	long := strings.Repeat("é", 40)

	_, err := e.users.Register(ctx, RegisterInput{Email: "x@locker.test", Password: long})
	wantErr(t, err, ErrInvalidInput)
	if KindOf(err) != KindInvalidInput {
		t.Errorf("kind = %v", KindOf(err))
	}

	// exactly at the limit is accepted
	if _, err := e.users.Register(ctx, RegisterInput{Email: "y@locker.test", Password: strings.Repeat("é", 36)}); err != nil {
		t.Fatalf("72-byte password: %v", err)
	}

	e.register(t, "a@locker.test")
	login, err := e.users.Authenticate(ctx, "a@locker.test", "secret-pass")
	if err != nil {
		t.Fatal(err)
	}
	sess, err := e.tokens.ResolveSession(ctx, login.Token)
	if err != nil {
		t.Fatal(err)
	}
	err = e.users.ChangePassword(ctx, sess, "secret-pass", long)
	wantErr(t, err, ErrInvalidInput)
	if _, err := e.users.Authenticate(ctx, "a@locker.test", "secret-pass"); err != nil {
		t.Errorf("old password stopped working: %v", err)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	e := newEnv(t)
	u := e.register(t, " ROOT@locker.test")
	if !u.IsAdmin {
		t.Fatal("bootstrap email should register as admin")
	}
}

func TestAuthenticateAndResolveSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "a@locker.test")

	res, err := e.users.Authenticate(ctx, " A@locker.test", "secret-pass")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Token) != 64 || res.User.ID != u.ID || !res.ExpiresAt.Equal(e.now.Add(time.Hour)) {
		t.Fatalf("login = %+v", res)
	}

	sess, err := e.tokens.ResolveSession(ctx, res.Token)
	if err != nil || sess.User.ID != u.ID {
		t.Fatalf("resolve = %+v, %v", sess, err)
	}

	for _, tc := range []struct {
		email, password string
	}{
		{"a@locker.test", "wrong"},
		{"nobody@locker.test", "secret-pass"},
	} {
		_, err := e.users.Authenticate(ctx, tc.email, tc.password)
		wantErr(t, err, ErrBadCredentials)
		if KindOf(err) != KindAuthInvalid {
			t.Errorf("kind = %v", KindOf(err))
		}
	}
}

func TestResolveSessionErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "a@locker.test")

	_, err := e.tokens.ResolveSession(ctx, "short")
	wantErr(t, err, ErrSessionMalformed)

	unknown := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	_, err = e.tokens.ResolveSession(ctx, unknown)
	wantErr(t, err, ErrSessionNotFound)

	login, err := e.users.Authenticate(ctx, "a@locker.test", "secret-pass")
	if err != nil {
		t.Fatal(err)
	}
	e.now = e.now.Add(2 * time.Hour)
	_, err = e.tokens.ResolveSession(ctx, login.Token)
	wantErr(t, err, ErrSessionNotFound)

	n, err := e.tokens.PurgeExpiredSessions(ctx)
	if err != nil || n != 1 {
		t.Fatalf("purged %d, %v", n, err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "a@locker.test")
	login, _ := e.users.Authenticate(ctx, "a@locker.test", "secret-pass")
	sess, err := e.tokens.ResolveSession(ctx, login.Token)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.users.Logout(ctx, sess); err != nil {
		t.Fatal(err)
	}
	_, err = e.tokens.ResolveSession(ctx, login.Token)
	wantErr(t, err, ErrSessionNotFound)
}

func TestListUsersRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	plain := e.register(t, "a@locker.test")
	root := e.register(t, "root@locker.test")

	_, err := e.users.List(ctx, plain)
	wantErr(t, err, ErrNotAdmin)
	if KindOf(err) != KindNotAuthorized {
		t.Errorf("kind = %v", KindOf(err))
	}

	users, err := e.users.List(ctx, root)
	if err != nil || len(users) != 2 {
		t.Fatalf("list = %v, %v", users, err)
	}
}

func TestSetAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	plain := e.register(t, "a@locker.test")
	root := e.register(t, "root@locker.test")

	_, err := e.users.SetAdmin(ctx, plain, plain.ID, true)
	wantErr(t, err, ErrNotAdmin)

	u, err := e.users.SetAdmin(ctx, root, plain.ID, true)
	if err != nil || !u.IsAdmin {
		t.Fatalf("promote = %+v, %v", u, err)
	}
	_, err = e.users.SetAdmin(ctx, root, 404, true)
	wantErr(t, err, ErrUserNotFound)
}

func TestUpdateInfo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "a@locker.test")
	b := e.register(t, "b@locker.test")
	root := e.register(t, "root@locker.test")

	u, err := e.users.UpdateInfo(ctx, a, a.ID, " Ann ", "Lee")
	if err != nil || u.FirstName != "Ann" || u.LastName != "Lee" {
		t.Fatalf("self update = %+v, %v", u, err)
	}
	_, err = e.users.UpdateInfo(ctx, a, b.ID, "X", "Y")
	wantErr(t, err, ErrForbiddenUpdate)
	if KindOf(err) != KindNotAuthorized {
		t.Errorf("kind = %v", KindOf(err))
	}
	if _, err := e.users.UpdateInfo(ctx, root, b.ID, "Bo", "Kim"); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	_, err = e.users.UpdateInfo(ctx, root, 404, "X", "Y")
	wantErr(t, err, ErrUserNotFound)
}

func TestGetUser(t *testing.T) {
	e := newEnv(t)
	a := e.register(t, "a@locker.test")
	got, err := e.users.Get(context.Background(), a.ID)
	if err != nil || got.Email != "a@locker.test" {
		t.Fatalf("get = %+v, %v", got, err)
	}
	_, err = e.users.Get(context.Background(), 77)
	wantErr(t, err, ErrUserNotFound)
	if KindOf(err) != KindNotFound {
		t.Errorf("kind = %v", KindOf(err))
	}
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "a@locker.test")
	first, _ := e.users.Authenticate(ctx, "a@locker.test", "secret-pass")
	second, _ := e.users.Authenticate(ctx, "a@locker.test", "secret-pass")
	sess, err := e.tokens.ResolveSession(ctx, second.Token)
	if err != nil {
		t.Fatal(err)
	}

	err = e.users.ChangePassword(ctx, sess, "bad-old", "new-pass")
	wantErr(t, err, ErrWrongPassword)

	if err := e.users.ChangePassword(ctx, sess, "secret-pass", "new-pass"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.tokens.ResolveSession(ctx, second.Token); err != nil {
		t.Errorf("current session revoked: %v", err)
	}
	_, err = e.tokens.ResolveSession(ctx, first.Token)
	wantErr(t, err, ErrSessionNotFound)

	if _, err := e.users.Authenticate(ctx, "a@locker.test", "new-pass"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}
