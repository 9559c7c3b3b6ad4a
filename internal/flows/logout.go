package flows

import "context"

// LogoutSessionStore is the slice of the session store used by logout.
type LogoutSessionStore interface {
	Discard(ctx context.Context, userID, sessionID string) (bool, error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	// Decode should verify the signature but may accept expired cookies.
	Decode       func(token string) (userID, sessionID string, err error)
	SessionStore LogoutSessionStore
}

// LogoutResult reports what was recovered and removed. The caller always
// clears the cookie regardless of its content.
type LogoutResult struct {
	UserID    string
	SessionID string
	Removed   bool
	DecodeErr error
	Err       error
}

// RunLogout removes the session named by token, best effort.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) LogoutResult {
	if token == "" {
		return LogoutResult{}
	}

	userID, sessionID, err := deps.Decode(token)
	if err != nil || userID == "" || sessionID == "" {
		return LogoutResult{DecodeErr: err}
	}

	removed, err := deps.SessionStore.Discard(ctx, userID, sessionID)
	return LogoutResult{
		UserID:    userID,
		SessionID: sessionID,
		Removed:   removed,
		Err:       err,
	}
}
