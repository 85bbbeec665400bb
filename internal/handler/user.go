package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/equipment-locker/internal/middleware"
	"github.com/iliyamo/equipment-locker/internal/service"
)

// UserHandler serves profile and user administration endpoints.
type UserHandler struct {
	Users *service.Users
}

func NewUserHandler(u *service.Users) *UserHandler {
	return &UserHandler{Users: u}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required,max=72"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

type updateInfoReq struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

type setAdminReq struct {
	IsAdmin *bool `json:"is_admin" validate:"required"`
}

// Me: GET /v1/me
func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// ChangePassword: PUT /v1/me/password.  Other sessions of the user are
// revoked; the one making the request stays valid.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	sess, _ := middleware.CurrentSession(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.ChangePassword(ctx, sess, req.OldPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Get: GET /v1/users/:id
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Update: PUT /v1/users/:id
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	var req updateInfoReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.UpdateInfo(ctx, middleware.CurrentUser(c), id, req.FirstName, req.LastName)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// List: GET /v1/users
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Users.List(ctx, middleware.CurrentUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// SetAdmin: PUT /v1/users/:id/admin
func (h *UserHandler) SetAdmin(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	var req setAdminReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.SetAdmin(ctx, middleware.CurrentUser(c), id, *req.IsAdmin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
