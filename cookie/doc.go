// Package cookie implements the session cookie codec: a compact HS256-signed
// envelope of {userId, sessionId, issuedAt, expiresAt}.
//
// The codec is pure. It holds signing keys but no mutable state, performs no I/O,
// and reports every verification failure as [ErrInvalid]. Keys can be rotated by
// giving each one a kid: the current key signs, every key in VerifyKeys verifies.
package cookie
