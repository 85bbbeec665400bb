package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/equipment-locker/internal/middleware"
	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/service"
)

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	Users *service.Users
}

func NewAuthHandler(u *service.Users) *AuthHandler {
	return &AuthHandler{Users: u}
}

// ----- DTOs -----

// Email syntax is checked by the service after trimming, so only the
// length is bounded here.
type registerReq struct {
	Email     string `json:"email" validate:"required,max=320"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Password  string `json:"password" validate:"required,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,max=320"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginResp struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      model.User `json:"user"`
}

// Register: POST /v1/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Login: POST /v1/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, loginResp{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

// Logout: POST /v1/auth/logout revokes the presented session only.
func (h *AuthHandler) Logout(c echo.Context) error {
	sess, _ := middleware.CurrentSession(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Logout(ctx, sess); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
