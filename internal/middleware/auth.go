package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/service"
	"github.com/iliyamo/equipment-locker/internal/utils"
)

// Context keys set by the auth middlewares.
const (
	ctxSession    = "session"
	ctxUserID     = "user_id"
	ctxTerminalID = "terminal_id"
)

// SessionResolver maps a raw bearer token to a session.
type SessionResolver interface {
	ResolveSession(ctx context.Context, raw string) (service.Session, error)
}

// SessionAuth requires a valid "Authorization: Bearer <session token>"
// header and stores the resolved session in the context.
func SessionAuth(resolver SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return errorJSON(c, http.StatusUnauthorized, "missing_token", "missing bearer token")
			}
			sess, err := resolver.ResolveSession(c.Request().Context(), raw)
			if err != nil {
				if service.KindOf(err) == service.KindAuthInvalid {
					return errorJSON(c, http.StatusUnauthorized, service.CodeOf(err), "invalid session")
				}
				c.Logger().Errorf("resolve session: %v", err)
				return errorJSON(c, http.StatusInternalServerError, "internal", "internal error")
			}
			c.Set(ctxSession, sess)
			c.Set(ctxUserID, strconv.FormatUint(sess.User.ID, 10))
			return next(c)
		}
	}
}

// RequireAdmin rejects sessions of non-admin users.  It must run after
// SessionAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := CurrentSession(c)
			if !ok || !sess.User.IsAdmin {
				return errorJSON(c, http.StatusForbidden, service.ErrNotAdmin.Code, service.ErrNotAdmin.Message)
			}
			return next(c)
		}
	}
}

// TerminalAuth protects the equipment endpoints with a terminal JWT.  An
// empty secret disables the check.
func TerminalAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if secret == "" {
			return next
		}
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return errorJSON(c, http.StatusUnauthorized, "missing_token", "missing terminal token")
			}
			id, err := utils.ParseTerminalToken(secret, raw)
			if err != nil {
				return errorJSON(c, http.StatusUnauthorized, "invalid_terminal_token", "invalid terminal token")
			}
			c.Set(ctxTerminalID, id)
			return next(c)
		}
	}
}

// CurrentSession returns the session stored by SessionAuth.
func CurrentSession(c echo.Context) (service.Session, bool) {
	sess, ok := c.Get(ctxSession).(service.Session)
	return sess, ok
}

// CurrentUser returns the authenticated user, or the zero user.
func CurrentUser(c echo.Context) model.User {
	sess, _ := CurrentSession(c)
	return sess.User
}

// TerminalID returns the terminal authenticated by TerminalAuth.
func TerminalID(c echo.Context) string {
	id, _ := c.Get(ctxTerminalID).(string)
	return id
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(auth[len(prefix):]), true
}

// errorJSON writes the error envelope shared with the handlers.
func errorJSON(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": code, "message": msg})
}
