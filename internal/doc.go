// Package internal contains helpers that are private to goSession, mainly secure
// session identifier generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - cleanup: bounded fire-and-forget queue for stale session removal
//   - flows: pure-function orchestrators for login, validate, logout and register
//   - appconfig: process configuration and logger construction for cmd/ binaries
//   - worker: bounded drain-on-close goroutine pool behind audit and cleanup
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
