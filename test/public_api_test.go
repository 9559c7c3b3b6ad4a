package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/userdir"
)

// Compile-time guard for the API consumers build against.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goSession.New
	_ = goSession.DefaultConfig

	var _ *goSession.Engine
	var _ goSession.Config
	var _ goSession.AuthResult
	var _ goSession.LoginResult
	var _ goSession.SessionCookie
	var _ goSession.UserDirectory
	var _ goSession.UserRegistrar
	var _ goSession.AuditSink

	var _ goSession.UserDirectory = (*userdir.Memory)(nil)
	var _ goSession.UserRegistrar = (*userdir.Postgres)(nil)
	var _ middleware.Authenticator = (*goSession.Engine)(nil)

	var _ error = goSession.ErrInvalidCredentials
	var _ error = goSession.ErrStoreUnavailable
	var _ error = goSession.ErrDirectoryUnavailable
	var _ error = goSession.ErrUnauthenticated
	var _ error = goSession.ErrAccountExists
	var _ error = goSession.ErrInvalidRegistration
	var _ error = session.ErrNotFound
	var _ error = session.ErrUnavailable
	var _ error = cookie.ErrInvalid

	var _ func(*goSession.Engine, context.Context, string, string) (*goSession.LoginResult, error) = (*goSession.Engine).Login
	var _ func(*goSession.Engine, context.Context, string, string, string) (*goSession.LoginResult, error) = (*goSession.Engine).Register
	var _ func(*goSession.Engine, context.Context, string) goSession.AuthResult = (*goSession.Engine).Validate
	var _ func(*goSession.Engine, context.Context, string) goSession.SessionCookie = (*goSession.Engine).Logout
	var _ func(*goSession.Engine, context.Context, string) (int, error) = (*goSession.Engine).RevokeUser
	var _ func(*goSession.Engine, string, time.Time) goSession.SessionCookie = (*goSession.Engine).SessionCookie

	var _ func(http.Handler) http.Handler = (*middleware.Auth)(nil).Guard
}
