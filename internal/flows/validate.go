package flows

import (
	"context"
	"errors"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMalformedCookie
	ValidateFailureSessionNotFound
	ValidateFailureSessionMismatch
	ValidateFailureUserNotFound
	ValidateFailureStoreUnavailable
	ValidateFailureDirectoryUnavailable
)

// Cleanup reports whether the failure leaves stale state worth removing.
func (k ValidateFailureKind) Cleanup() bool {
	switch k {
	case ValidateFailureSessionNotFound, ValidateFailureSessionMismatch, ValidateFailureUserNotFound:
		return true
	default:
		return false
	}
}

// ValidateResult is either an authenticated user/session pair or a
// classified failure.
type ValidateResult struct {
	Failure   ValidateFailureKind
	Err       error
	UserID    string
	SessionID string
}

// ValidateSessionStore is the slice of the session store used by validate.
type ValidateSessionStore interface {
	Get(ctx context.Context, sessionID string) (string, error)
}

// ValidateDeps captures cookie validation dependencies.
type ValidateDeps struct {
	Decode       func(token string) (userID, sessionID string, err error)
	SessionStore ValidateSessionStore
	UserExists   func(ctx context.Context, userID string) (bool, error)
	// ScheduleCleanup must not block; it is called for stale sessions only.
	ScheduleCleanup func(userID, sessionID string, kind ValidateFailureKind)
	StoreNotFound   error
}

// RunValidate resolves a cookie to its user. Every failure is fail-closed:
// store and directory errors are failures, never successes.
func RunValidate(ctx context.Context, token string, deps ValidateDeps) ValidateResult {
	userID, sessionID, err := deps.Decode(token)
	if err != nil || userID == "" || sessionID == "" {
		return ValidateResult{Failure: ValidateFailureMalformedCookie, Err: err}
	}

	owner, err := deps.SessionStore.Get(ctx, sessionID)
	if err != nil {
		if deps.StoreNotFound != nil && errors.Is(err, deps.StoreNotFound) {
			return fail(userID, sessionID, ValidateFailureSessionNotFound, err, deps)
		}
		return ValidateResult{
			Failure:   ValidateFailureStoreUnavailable,
			Err:       err,
			UserID:    userID,
			SessionID: sessionID,
		}
	}
	if owner != userID {
		return fail(userID, sessionID, ValidateFailureSessionMismatch, nil, deps)
	}

	exists, err := deps.UserExists(ctx, userID)
	if err != nil {
		return ValidateResult{
			Failure:   ValidateFailureDirectoryUnavailable,
			Err:       err,
			UserID:    userID,
			SessionID: sessionID,
		}
	}
	if !exists {
		return fail(userID, sessionID, ValidateFailureUserNotFound, nil, deps)
	}

	return ValidateResult{UserID: userID, SessionID: sessionID}
}

func fail(userID, sessionID string, kind ValidateFailureKind, err error, deps ValidateDeps) ValidateResult {
	if deps.ScheduleCleanup != nil && kind.Cleanup() {
		deps.ScheduleCleanup(userID, sessionID, kind)
	}
	return ValidateResult{Failure: kind, Err: err, UserID: userID, SessionID: sessionID}
}
