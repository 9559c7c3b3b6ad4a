package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// RegisterErrors carries host-level sentinels returned by registration.
type RegisterErrors struct {
	Invalid              error
	Exists               error
	DirectoryUnavailable error
}

// RegisterDeps captures registration dependencies. Session creation reuses
// the login dependencies.
type RegisterDeps struct {
	MinPasswordLength int
	MaxPasswordBytes  int
	MinNameLength     int
	CreateUser        func(ctx context.Context, email, password, name string) (string, error)
	Errors            RegisterErrors
	Login             LoginDeps
}

// RegisterResult embeds the session outcome. Created is true once the
// account exists, even if establishing the session then failed.
type RegisterResult struct {
	LoginResult
	Created bool
}

// NormalizeRegistration validates and canonicalizes registration input.
// maxPasswordBytes <= 0 disables the upper bound.
func NormalizeRegistration(email, password, name string, minPassword, maxPasswordBytes, minName int) (string, string, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" || !strings.Contains(email, "@") {
		return "", "", errors.New("email must contain @")
	}
	if utf8.RuneCountInString(password) < minPassword {
		return "", "", fmt.Errorf("password must be at least %d characters", minPassword)
	}
	if maxPasswordBytes > 0 && len(password) > maxPasswordBytes {
		return "", "", fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
	}
	if utf8.RuneCountInString(name) < minName {
		return "", "", fmt.Errorf("name must be at least %d characters", minName)
	}
	return email, name, nil
}

// RunRegister creates an account and logs it in.
func RunRegister(ctx context.Context, email, password, name string, deps RegisterDeps) RegisterResult {
	email, name, err := NormalizeRegistration(email, password, name, deps.MinPasswordLength, deps.MaxPasswordBytes, deps.MinNameLength)
	if err != nil {
		return RegisterResult{LoginResult: LoginResult{Err: wrapErr(deps.Errors.Invalid, err)}}
	}

	userID, err := deps.CreateUser(ctx, email, password, name)
	if err != nil {
		if deps.Errors.Exists != nil && errors.Is(err, deps.Errors.Exists) {
			return RegisterResult{LoginResult: LoginResult{Err: deps.Errors.Exists}}
		}
		if deps.Errors.Invalid != nil && errors.Is(err, deps.Errors.Invalid) {
			return RegisterResult{LoginResult: LoginResult{Err: err}}
		}
		return RegisterResult{LoginResult: LoginResult{Err: wrapErr(deps.Errors.DirectoryUnavailable, err)}}
	}

	return RegisterResult{
		LoginResult: RunEstablishSession(ctx, userID, deps.Login),
		Created:     true,
	}
}
