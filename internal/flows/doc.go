// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunValidate, RunLogout, RunRegister) accepts a
// typed dependency struct and returns a result value. Nothing here panics or
// returns transport-level decisions; the Engine maps results to its public
// outcomes, metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate the session store, cookie codec and user directory.
// They do NOT own any of these resources. Ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
