package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// Authenticator is the slice of *goSession.Engine the middleware needs.
type Authenticator interface {
	Validate(ctx context.Context, token string) goSession.AuthResult
	CookieName() string
	ClearedCookie() goSession.SessionCookie
}

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by WithUser.
func AuthResultFromContext(ctx context.Context) (goSession.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(goSession.AuthResult)
	return res, ok
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	res, ok := AuthResultFromContext(ctx)
	if !ok || !res.Authenticated() {
		return ""
	}
	return res.UserID
}

// Auth resolves the session cookie on each request.
type Auth struct {
	engine    Authenticator
	logger    *slog.Logger
	loginPath string
}

// NewAuth returns middleware bound to engine. Unauthenticated page requests
// are redirected to /login.
func NewAuth(engine Authenticator, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Auth{engine: engine, logger: logger, loginPath: "/login"}
}

// WithLoginPath overrides the redirect target used by RequireUser.
func (a *Auth) WithLoginPath(path string) *Auth {
	a.loginPath = path
	return a
}

// WithUser validates the session cookie, if any, and stores the outcome in the
// request context. It always calls next. Cookies that can never become valid
// again are cleared; cookies rejected because a dependency is down are kept.
func (a *Auth) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := RequestContext(r)

		token := ""
		if c, err := r.Cookie(a.engine.CookieName()); err == nil {
			token = c.Value
		}

		res := a.engine.Validate(ctx, token)
		if !res.Authenticated() {
			switch res.Reason {
			case goSession.ReasonNoCookie:
			case goSession.ReasonStoreUnavailable, goSession.ReasonDirectoryUnavailable:
				a.logger.WarnContext(ctx, "session check failed closed", "reason", res.Reason.String(), "path", r.URL.Path)
			default:
				SetSessionCookie(w, a.engine.ClearedCookie())
				a.logger.DebugContext(ctx, "session cookie rejected", "reason", res.Reason.String())
			}
		}

		ctx = context.WithValue(ctx, authResultContextKey{}, res)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects anonymous requests. It must run after WithUser. Page
// requests are redirected to the login path with 303 and a return_to
// parameter; API requests get a 401 JSON body.
func (a *Auth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) != "" {
			next.ServeHTTP(w, r)
			return
		}

		if IsAPIRequest(r) {
			WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		returnTo := r.URL.Path
		if r.URL.RawQuery != "" {
			returnTo += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, a.loginPath+"?return_to="+url.QueryEscape(returnTo), http.StatusSeeOther)
	})
}

// Guard is WithUser followed by RequireUser.
func (a *Auth) Guard(next http.Handler) http.Handler {
	return Stack(a.WithUser, a.RequireUser)(next)
}

// Stack composes middleware; the first argument is the outermost.
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// RequestContext copies the client address and user agent into the request
// context for audit events.
func RequestContext(r *http.Request) context.Context {
	ctx := goSession.WithClientIP(r.Context(), clientIP(r))
	if ua := r.UserAgent(); ua != "" {
		ctx = goSession.WithUserAgent(ctx, ua)
	}
	return ctx
}

// SetSessionCookie writes a Set-Cookie header for c.
func SetSessionCookie(w http.ResponseWriter, c goSession.SessionCookie) {
	if c.Name == "" {
		return
	}
	http.SetCookie(w, c.HTTPCookie())
}

// IsAPIRequest reports whether the client expects JSON rather than a page.
func IsAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// WriteJSONError writes {"error": msg} with status.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
