package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/equipment-locker/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// Validator adapts go-playground/validator to echo.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the body into req and runs its validate tags.  When ok is
// false the 400 response has already been written.
func bind(c echo.Context, req any) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": validationMessage(err)})
	}
	return true, nil
}

func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func invalidID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_id", "message": "invalid id"})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid input"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func statusOf(err error) int {
	switch service.KindOf(err) {
	case service.KindAuthInvalid:
		return http.StatusUnauthorized
	case service.KindNotAuthorized:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindResourceExhausted:
		if errors.Is(err, service.ErrCodeSpaceExhausted) {
			return http.StatusServiceUnavailable
		}
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error.  Internal errors are logged and
// reported without their text.
func writeError(c echo.Context, err error) error {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, echo.Map{"error": "internal", "message": "internal error"})
	}

	body := echo.Map{"error": service.CodeOf(err)}
	var (
		se    *service.Error
		taken *service.EmailTakenError
	)
	switch {
	case errors.As(err, &taken):
		body["message"] = service.ErrEmailTaken.Message
		body["user_id"] = taken.UserID
	case errors.As(err, &se):
		body["message"] = se.Message
	}
	return c.JSON(status, body)
}
