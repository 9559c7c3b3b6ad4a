package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/cookie"
)

// Config is the full Engine configuration. Start from [DefaultConfig] and
// override what you need; Build validates and freezes a private copy.
type Config struct {
	Session      SessionConfig
	Cookie       CookieConfig
	Store        StoreConfig
	Cleanup      CleanupConfig
	Registration RegistrationConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig bounds session lifetime. There is no sliding renewal: a
// session lives exactly TTL after login unless revoked first.
type SessionConfig struct {
	TTL time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the signed session cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite

	// Secret signs new cookies; at least cookie.MinSecretBytes long.
	Secret []byte
	// KeyID tags cookies with a kid so PreviousKeys can verify during rotation.
	KeyID        string
	PreviousKeys map[string][]byte
	Issuer       string
	Leeway       time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

type StoreConfig struct {
	// KeyPrefix is prepended to every key; empty keeps the bare
	// session:<sid> and user:<uid>:sessions layout.
	KeyPrefix string
	OpTimeout time.Duration
}

/*
====================================
CLEANUP CONFIG
====================================
*/

// CleanupConfig sizes the background queue that removes stale sessions found
// during validation.
type CleanupConfig struct {
	Enabled   bool
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

/*
====================================
REGISTRATION CONFIG
====================================
*/

// RegistrationConfig bounds the input Register accepts.
type RegistrationConfig struct {
	Enabled           bool
	MinPasswordLength int
	// MaxPasswordBytes must not exceed the directory hasher's own cap.
	MaxPasswordBytes int
	MinNameLength    int
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultCookieName matches the cookie name used by earlier deployments.
const DefaultCookieName = "app_session"

// DefaultConfig returns development-friendly defaults. Callers still have to
// supply Cookie.Secret, and should set Cookie.Secure in production.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL: 86400 * time.Second,
		},
		Cookie: CookieConfig{
			Name:     DefaultCookieName,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		},
		Store: StoreConfig{
			OpTimeout: 2 * time.Second,
		},
		Cleanup: CleanupConfig{
			Enabled:   true,
			Workers:   2,
			QueueSize: 1024,
			Timeout:   2 * time.Second,
		},
		Registration: RegistrationConfig{
			Enabled:           true,
			MinPasswordLength: 8,
			MaxPasswordBytes:  1024,
			MinNameLength:     2,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Cookie.Secret = cloneBytes(cfg.Cookie.Secret)
	if cfg.Cookie.PreviousKeys != nil {
		out.Cookie.PreviousKeys = make(map[string][]byte, len(cfg.Cookie.PreviousKeys))
		for kid, key := range cfg.Cookie.PreviousKeys {
			out.Cookie.PreviousKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// Session
	if c.Session.TTL < time.Second {
		return errors.New("Session TTL must be >= 1s")
	}

	// Cookie
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("Cookie Name must be set")
	}
	if strings.ContainsAny(c.Cookie.Name, " \t\r\n;,=") {
		return errors.New("Cookie Name contains invalid characters")
	}
	if c.Cookie.Path == "" {
		return errors.New("Cookie Path must be set")
	}
	if len(c.Cookie.Secret) < cookie.MinSecretBytes {
		return fmt.Errorf("Cookie Secret must be >= %d bytes", cookie.MinSecretBytes)
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}
	if len(c.Cookie.PreviousKeys) > 0 && strings.TrimSpace(c.Cookie.KeyID) == "" {
		return errors.New("Cookie KeyID is required when PreviousKeys are set")
	}
	if c.Cookie.Leeway < 0 || c.Cookie.Leeway > 2*time.Minute {
		return errors.New("Cookie Leeway must be within [0, 2m]")
	}

	// Store
	if c.Store.OpTimeout <= 0 {
		return errors.New("Store OpTimeout must be > 0")
	}

	// Cleanup
	if c.Cleanup.Enabled {
		if c.Cleanup.Workers <= 0 {
			return errors.New("Cleanup Workers must be > 0")
		}
		if c.Cleanup.QueueSize <= 0 {
			return errors.New("Cleanup QueueSize must be > 0")
		}
		if c.Cleanup.Timeout <= 0 {
			return errors.New("Cleanup Timeout must be > 0")
		}
	}

	// Registration
	if c.Registration.MinPasswordLength < 8 {
		return errors.New("Registration MinPasswordLength must be >= 8")
	}
	if c.Registration.MaxPasswordBytes < c.Registration.MinPasswordLength {
		return errors.New("Registration MaxPasswordBytes must be >= MinPasswordLength")
	}
	if c.Registration.MinNameLength < 1 {
		return errors.New("Registration MinNameLength must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
