package flows

import (
	"fmt"
	"strings"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates each request method to the matching flow.
type Deps struct {
	Login    LoginDeps
	Validate ValidateDeps
	Logout   LogoutDeps
	Register RegisterDeps
}

// NormalizeEmail is the canonical form used for every directory lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func wrapErr(sentinel, cause error) error {
	if sentinel == nil {
		return cause
	}
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %v", sentinel, cause)
}
