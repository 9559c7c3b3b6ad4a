package main

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
)

const invalidCredentialsMessage = "Invalid email or password"

type app struct {
	engine *goSession.Engine
	auth   *middleware.Auth
	logger *slog.Logger
}

func newApp(engine *goSession.Engine, logger *slog.Logger) *app {
	return &app{
		engine: engine,
		auth:   middleware.NewAuth(engine, logger),
		logger: logger,
	}
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.Handle("GET /metrics", prometheus.Handler(prometheus.NewCollector(a.engine)))

	mux.Handle("GET /login", a.auth.WithUser(http.HandlerFunc(a.handleLoginPage)))
	mux.HandleFunc("POST /login", a.handleLogin)
	mux.HandleFunc("POST /register", a.handleRegister)
	mux.HandleFunc("POST /logout", a.handleLogout)
	// Logging out needs a POST; a stray GET just goes home.
	mux.HandleFunc("GET /logout", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	mux.Handle("GET /dashboard", a.auth.Guard(http.HandlerFunc(a.handleDashboard)))
	mux.Handle("GET /api/me", a.auth.Guard(http.HandlerFunc(a.handleMe)))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	return mux
}

/* ==== Health ==== */

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Ping(r.Context()); err != nil {
		a.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

/* ==== Login ==== */

var loginPage = template.Must(template.New("login").Parse(`<!doctype html>
<html><head><title>Sign in</title></head>
<body>
{{if .Error}}<p role="alert">{{.Error}}</p>{{end}}
<form method="post" action="/login">
<input type="hidden" name="return_to" value="{{.ReturnTo}}">
<label>Email <input type="email" name="email" value="{{.Email}}" required></label>
<label>Password <input type="password" name="password" required></label>
<button type="submit">Sign in</button>
</form>
</body></html>
`))

type loginPageData struct {
	Email    string
	ReturnTo string
	Error    string
}

func (a *app) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.UserID(r.Context()) != "" {
		http.Redirect(w, r, safeReturnTo(r.URL.Query().Get("return_to")), http.StatusSeeOther)
		return
	}
	a.renderLogin(w, http.StatusOK, loginPageData{ReturnTo: r.URL.Query().Get("return_to")})
}

func (a *app) renderLogin(w http.ResponseWriter, status int, data loginPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := loginPage.Execute(w, data); err != nil {
		a.logger.Error("render login page", "error", err)
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	ReturnTo string `json:"return_to"`
}

func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
		err := json.NewDecoder(r.Body).Decode(&c)
		return c, err
	}
	if err := r.ParseForm(); err != nil {
		return c, err
	}
	c.Email = r.PostFormValue("email")
	c.Password = r.PostFormValue("password")
	c.Name = r.PostFormValue("name")
	c.ReturnTo = r.PostFormValue("return_to")
	return c, nil
}

func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	api := middleware.IsAPIRequest(r)

	creds, err := readCredentials(w, r)
	if err != nil {
		a.badRequest(w, api, "malformed request")
		return
	}

	res, err := a.engine.Login(middleware.RequestContext(r), creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, goSession.ErrInvalidCredentials) {
			if api {
				middleware.WriteJSONError(w, http.StatusUnauthorized, invalidCredentialsMessage)
				return
			}
			a.renderLogin(w, http.StatusUnauthorized, loginPageData{
				Email:    creds.Email,
				ReturnTo: creds.ReturnTo,
				Error:    invalidCredentialsMessage,
			})
			return
		}
		a.unavailable(w, api)
		return
	}

	a.sessionEstablished(w, r, api, http.StatusOK, res, creds.ReturnTo)
}

/* ==== Register ==== */

func (a *app) handleRegister(w http.ResponseWriter, r *http.Request) {
	api := middleware.IsAPIRequest(r)

	creds, err := readCredentials(w, r)
	if err != nil {
		a.badRequest(w, api, "malformed request")
		return
	}

	res, err := a.engine.Register(middleware.RequestContext(r), creds.Email, creds.Password, creds.Name)
	switch {
	case err == nil:
		a.sessionEstablished(w, r, api, http.StatusCreated, res, creds.ReturnTo)
	case errors.Is(err, goSession.ErrInvalidRegistration):
		a.badRequest(w, api, err.Error())
	case errors.Is(err, goSession.ErrAccountExists):
		a.fail(w, api, http.StatusConflict, "An account with this email already exists")
	case errors.Is(err, goSession.ErrRegistrationDisabled):
		a.fail(w, api, http.StatusForbidden, "Registration is disabled")
	default:
		a.unavailable(w, api)
	}
}

func (a *app) sessionEstablished(w http.ResponseWriter, r *http.Request, api bool, status int, res *goSession.LoginResult, returnTo string) {
	middleware.SetSessionCookie(w, res.Cookie)
	if api {
		writeJSON(w, status, map[string]any{
			"user_id":    res.UserID,
			"expires_at": res.ExpiresAt,
		})
		return
	}
	http.Redirect(w, r, safeReturnTo(returnTo), http.StatusSeeOther)
}

/* ==== Logout ==== */

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(a.engine.CookieName()); err == nil {
		token = c.Value
	}

	middleware.SetSessionCookie(w, a.engine.Logout(middleware.RequestContext(r), token))

	if middleware.IsAPIRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

/* ==== Protected ==== */

func (a *app) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = dashboardPage.Execute(w, struct{ UserID string }{middleware.UserID(r.Context())})
}

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html><head><title>Dashboard</title></head>
<body>
<p>Signed in as {{.UserID}}</p>
<form method="post" action="/logout"><button type="submit">Sign out</button></form>
</body></html>
`))

func (a *app) handleMe(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"user_id": res.UserID})
}

/* ==== Helpers ==== */

func (a *app) badRequest(w http.ResponseWriter, api bool, msg string) {
	a.fail(w, api, http.StatusBadRequest, msg)
}

func (a *app) unavailable(w http.ResponseWriter, api bool) {
	a.fail(w, api, http.StatusServiceUnavailable, "Service temporarily unavailable")
}

func (a *app) fail(w http.ResponseWriter, api bool, status int, msg string) {
	if api {
		middleware.WriteJSONError(w, status, msg)
		return
	}
	http.Error(w, msg, status)
}

// safeReturnTo only allows local absolute paths.
func safeReturnTo(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return "/dashboard"
	}
	return target
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
