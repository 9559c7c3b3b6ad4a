package flows

import (
	"context"
	"errors"
	"time"
)

// LoginSessionStore is the slice of the session store used by login.
type LoginSessionStore interface {
	MembersOf(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteIndex(ctx context.Context, userID string) error
	Create(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	Discard(ctx context.Context, userID, sessionID string) (bool, error)
}

// LoginErrors carries host-level sentinels returned by the login flow.
type LoginErrors struct {
	InvalidCredentials    error
	DirectoryUnavailable  error
	StoreUnavailable      error
	SessionCreationFailed error
	// UserNotFound is the directory's not-found sentinel for GetByEmail.
	UserNotFound error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Verify       func(ctx context.Context, email, password string) (bool, error)
	LookupUserID func(ctx context.Context, email string) (string, error)
	NewSessionID func() (string, error)
	EncodeCookie func(userID, sessionID string, issuedAt, expiresAt time.Time) (string, error)
	SessionStore LoginSessionStore
	SessionTTL   time.Duration
	Now          func() time.Time
	// OnRevokeFailure observes each prior session that could not be removed.
	// sessionID is empty when deleting the index itself failed.
	OnRevokeFailure func(ctx context.Context, userID, sessionID string, err error)
	Errors          LoginErrors
}

// LoginResult is the flow-local login response shape. Err is nil on success.
type LoginResult struct {
	UserID         string
	SessionID      string
	Token          string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	Revoked        int
	RevokeFailures int
	Err            error
}

// RunLogin verifies credentials and establishes a fresh single session.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{Err: deps.Errors.InvalidCredentials}
	}

	ok, err := deps.Verify(ctx, email, password)
	if err != nil {
		return LoginResult{Err: wrapErr(deps.Errors.DirectoryUnavailable, err)}
	}
	if !ok {
		return LoginResult{Err: deps.Errors.InvalidCredentials}
	}

	userID, err := deps.LookupUserID(ctx, email)
	if err != nil {
		// Deleted between verify and lookup: still a credential failure.
		if deps.Errors.UserNotFound != nil && errors.Is(err, deps.Errors.UserNotFound) {
			return LoginResult{Err: deps.Errors.InvalidCredentials}
		}
		return LoginResult{Err: wrapErr(deps.Errors.DirectoryUnavailable, err)}
	}
	if userID == "" {
		return LoginResult{Err: deps.Errors.InvalidCredentials}
	}

	return RunEstablishSession(ctx, userID, deps)
}

// RunEstablishSession revokes every existing session of userID, then creates
// and encodes a new one.
//
// Revocation runs before creation and the two are not serialized per user.
// Concurrent calls for the same user can therefore leave more than one live
// session, and one call's DeleteIndex can drop the other's fresh index entry.
// The next sequential login restores exactly one session.
func RunEstablishSession(ctx context.Context, userID string, deps LoginDeps) LoginResult {
	sessionID, err := deps.NewSessionID()
	if err != nil || sessionID == "" {
		return LoginResult{UserID: userID, Err: wrapErr(deps.Errors.SessionCreationFailed, err)}
	}

	res := LoginResult{UserID: userID}

	revoked, failures, err := revokeAll(ctx, userID, deps)
	res.Revoked = revoked
	res.RevokeFailures = failures
	if err != nil {
		res.Err = wrapErr(deps.Errors.StoreUnavailable, err)
		return res
	}

	ttl := deps.SessionTTL
	now := deps.Now()
	expiresAt := now.Add(ttl)

	if err := deps.SessionStore.Create(ctx, sessionID, userID, ttl); err != nil {
		res.Err = wrapErr(deps.Errors.StoreUnavailable, err)
		return res
	}

	token, err := deps.EncodeCookie(userID, sessionID, now, expiresAt)
	if err != nil {
		// No cookie will ever reference this session.
		_, _ = deps.SessionStore.Discard(ctx, userID, sessionID)
		res.Err = wrapErr(deps.Errors.SessionCreationFailed, err)
		return res
	}

	res.SessionID = sessionID
	res.Token = token
	res.IssuedAt = now
	res.ExpiresAt = expiresAt
	return res
}

// revokeAll removes every indexed session of userID. Failure to read the index
// aborts; individual delete failures are reported and skipped.
func revokeAll(ctx context.Context, userID string, deps LoginDeps) (int, int, error) {
	members, err := deps.SessionStore.MembersOf(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	revoked, failures := 0, 0
	for _, sid := range members {
		if err := deps.SessionStore.Delete(ctx, sid); err != nil {
			failures++
			if deps.OnRevokeFailure != nil {
				deps.OnRevokeFailure(ctx, userID, sid, err)
			}
			continue
		}
		revoked++
	}

	if err := deps.SessionStore.DeleteIndex(ctx, userID); err != nil {
		failures++
		if deps.OnRevokeFailure != nil {
			deps.OnRevokeFailure(ctx, userID, "", err)
		}
	}

	return revoked, failures, nil
}
