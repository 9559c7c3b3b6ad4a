// Package middleware adapts goSession.Engine to net/http.
//
// WithUser reads the session cookie, calls Engine.Validate and stores the
// [goSession.AuthResult] in the request context. RequireUser turns an
// anonymous result into a 303 redirect to the login page, or a 401 JSON
// response for API requests. Handlers read the user with [UserID].
//
// The Engine decides who is authenticated. This package only decides what
// the HTTP response looks like.
package middleware
