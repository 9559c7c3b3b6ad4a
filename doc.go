// Package goSession provides cookie-based, single-session authentication
// backed by Redis.
//
// A signed cookie carries {userId, sessionId}; Redis holds session:<sid>
// with a TTL and a per-user index user:<uid>:sessions. Every successful login
// revokes the user's previous sessions before creating the new one.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([AuthResult], [LoginResult], [SessionCookie]). Flow
// orchestration, session id generation, cleanup and audit dispatch live under
// internal/. Credential storage belongs to a [UserDirectory] supplied by the
// caller; see the userdir package for in-memory and Postgres implementations.
//
// # Failure semantics
//
// Validate never returns an error. Malformed cookies, missing or mismatched
// sessions, deleted users and unreachable dependencies all yield an
// unauthenticated [AuthResult] with a [Reason]. Login reports a single
// [ErrInvalidCredentials] for both unknown emails and wrong passwords.
// Transport layers decide how to redirect; the Engine never does.
//
// # Concurrency
//
// Login is not serialized per user. Two concurrent logins for the same user
// may both survive; the next sequential login restores a single session.
package goSession
