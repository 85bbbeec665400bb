package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidEmail is returned by NormalizeEmail for syntactically invalid
// addresses.
var ErrInvalidEmail = errors.New("invalid email address")

var emailValidator = validator.New()

// NormalizeEmail trims and lower-cases s and checks its syntax.  The
// normalized form is what gets stored and compared.
func NormalizeEmail(s string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(s))
	if e == "" || emailValidator.Var(e, "required,email,max=320") != nil {
		return "", ErrInvalidEmail
	}
	return e, nil
}
