package goSession

import (
	"context"
	"net/http"
	"time"
)

// UserDirectory is the credential collaborator the Engine consumes. It owns
// password hashes; the Engine only ever asks questions about them.
//
//   - Verify returns false, nil for an unknown email as well as a wrong password.
//   - GetByEmail returns [ErrUserNotFound] for an unknown email.
//   - Exists returns false, nil for an unknown user id.
//
// Any other error is treated as the directory being unavailable.
type UserDirectory interface {
	Verify(ctx context.Context, email, password string) (bool, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

// UserRegistrar is implemented by directories that can create accounts.
// Register requires it. Create returns [ErrAccountExists] for a taken email.
type UserRegistrar interface {
	Create(ctx context.Context, input NewUser) (User, error)
}

// User is the directory's public view of an account.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// NewUser carries validated registration input. Email is already normalized.
type NewUser struct {
	Email    string
	Password string
	Name     string
}

// AuthStatus is the gateway state observed for one request.
type AuthStatus uint8

const (
	StatusAnonymous AuthStatus = iota
	StatusAuthenticated
)

func (s AuthStatus) String() string {
	if s == StatusAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Reason says why a validation ended Unauthenticated. Transport layers may log
// it but must not reveal it to clients.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonNoCookie
	ReasonMalformedCookie
	ReasonSessionNotFound
	ReasonSessionMismatch
	ReasonUserNotFound
	ReasonStoreUnavailable
	ReasonDirectoryUnavailable
)

var reasonNames = [...]string{
	ReasonNone:                 "none",
	ReasonNoCookie:             "no_cookie",
	ReasonMalformedCookie:      "malformed_cookie",
	ReasonSessionNotFound:      "session_not_found",
	ReasonSessionMismatch:      "session_mismatch",
	ReasonUserNotFound:         "user_not_found",
	ReasonStoreUnavailable:     "store_unavailable",
	ReasonDirectoryUnavailable: "directory_unavailable",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// AuthResult is the tagged outcome of Validate: Authenticated(UserID) or
// Unauthenticated(Reason).
type AuthResult struct {
	Status    AuthStatus
	UserID    string
	SessionID string
	Reason    Reason
}

// Authenticated reports whether the request carries a live session.
func (r AuthResult) Authenticated() bool {
	return r.Status == StatusAuthenticated && r.UserID != ""
}

// Err returns nil when authenticated and [ErrUnauthenticated] otherwise.
func (r AuthResult) Err() error {
	if r.Authenticated() {
		return nil
	}
	return ErrUnauthenticated
}

func authenticated(userID, sessionID string) AuthResult {
	return AuthResult{Status: StatusAuthenticated, UserID: userID, SessionID: sessionID}
}

func unauthenticated(reason Reason) AuthResult {
	return AuthResult{Status: StatusAnonymous, Reason: reason}
}

// LoginResult is returned by Login and Register.
type LoginResult struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
	// Revoked counts the prior sessions removed by single-session enforcement.
	Revoked int
	Cookie  SessionCookie
}

// SessionCookie is a transport-neutral Set-Cookie instruction. A cleared
// cookie has an empty Value and a negative MaxAge.
type SessionCookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	MaxAge   int
	Expires  time.Time
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// Cleared reports whether the instruction deletes the cookie.
func (c SessionCookie) Cleared() bool {
	return c.MaxAge < 0
}

// HTTPCookie converts the instruction for net/http.
func (c SessionCookie) HTTPCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   c.MaxAge,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: c.SameSite,
	}
}
