package userdir

import (
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
)

var (
	// ErrNotFound is returned by GetByEmail for an unknown email.
	ErrNotFound = goSession.ErrUserNotFound
	// ErrDuplicateEmail is returned by Create when the email is taken.
	ErrDuplicateEmail = goSession.ErrAccountExists
)

var (
	_ goSession.UserDirectory = (*Memory)(nil)
	_ goSession.UserRegistrar = (*Memory)(nil)
	_ goSession.UserDirectory = (*Postgres)(nil)
	_ goSession.UserRegistrar = (*Postgres)(nil)
)

// hashError reports input the hasher refuses as a registration problem
// rather than a directory failure.
func hashError(err error) error {
	if errors.Is(err, password.ErrPasswordTooLong) {
		return fmt.Errorf("%w: %w", goSession.ErrInvalidRegistration, err)
	}
	return fmt.Errorf("userdir: hash password: %w", err)
}
