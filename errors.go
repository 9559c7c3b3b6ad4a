package goSession

import "errors"

var (
	// ErrInvalidCredentials is the single generic login failure. It never
	// distinguishes an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrMalformedCookie is returned when a session cookie fails decoding.
	ErrMalformedCookie = errors.New("malformed session cookie")
	// ErrSessionNotFound is returned when the cookie's session is not live.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUserNotFound is returned by UserDirectory implementations for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable is returned when the session store cannot be reached in time.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrDirectoryUnavailable is returned when the user directory fails.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	// ErrUnauthenticated is the collapsed outcome of every validation failure.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAccountExists is returned by Register for an email that is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidRegistration wraps a field-level registration problem.
	ErrInvalidRegistration = errors.New("invalid registration")
	// ErrRegistrationDisabled is returned by Register when registration is off
	// or the directory cannot create users.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrSessionCreationFailed is returned when a session id or cookie cannot be produced.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrShardedRedis is returned by Build for cluster and ring clients. A
	// session write spans two keys in different hash slots.
	ErrShardedRedis = errors.New("sharded redis clients are not supported")
)
