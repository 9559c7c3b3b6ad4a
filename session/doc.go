// Package session provides the Redis-backed SessionStore: session records keyed by
// session id with a TTL, and a per-user index set of session ids.
//
// # Architecture boundaries
//
// This package owns the [Store] and its key layout. It does NOT decode cookies,
// look up users, or decide when sessions are revoked. Those responsibilities
// belong to the Engine.
//
// # What this package must NOT do
//
//   - Import goSession or cookie (no upward imports).
//   - Retry failed calls inline; failures surface as [ErrUnavailable].
//   - Close the Redis client it was given.
package session
