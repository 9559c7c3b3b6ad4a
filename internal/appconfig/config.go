package appconfig

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/joho/godotenv"
)

const minSecretBytes = 32

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Session cookie
	SessionSecret   []byte
	SessionKeyID    string
	PreviousSecrets map[string][]byte
	CookieName      string
	// GeneratedSecret is set when development mode filled in a random
	// secret; cookies then do not survive a restart.
	GeneratedSecret bool

	// Redis
	RedisURL      string
	SessionExpiry time.Duration
	RedisTimeout  time.Duration
	KeyPrefix     string

	// Empty selects the in-memory user directory.
	DatabaseURL string

	MetricsEnabled bool
	AuditEnabled   bool
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", getEnv("NODE_ENV", "development"))

	cfg := &Config{
		Env:      env,
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SessionKeyID: getEnv("SESSION_KEY_ID", ""),
		CookieName:   getEnv("SESSION_COOKIE_NAME", goSession.DefaultCookieName),

		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		SessionExpiry: time.Duration(getEnvInt("REDIS_SESSION_EXPIRY", 86400)) * time.Second,
		RedisTimeout:  getEnvDuration("REDIS_TIMEOUT", 2*time.Second),
		KeyPrefix:     getEnv("REDIS_KEY_PREFIX", ""),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		AuditEnabled:   getEnvBool("AUDIT_ENABLED", false),
	}

	secret := os.Getenv("SESSION_SECRET")
	switch {
	case secret != "":
		cfg.SessionSecret = []byte(secret)
	case cfg.IsProduction():
		return nil, fmt.Errorf("SESSION_SECRET is required in production")
	default:
		generated := make([]byte, minSecretBytes)
		if _, err := rand.Read(generated); err != nil {
			return nil, fmt.Errorf("generate development secret: %w", err)
		}
		cfg.SessionSecret = generated
		cfg.GeneratedSecret = true
	}
	if len(cfg.SessionSecret) < minSecretBytes {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSecretBytes)
	}

	previous, err := parsePreviousSecrets(getEnv("SESSION_PREVIOUS_SECRETS", ""))
	if err != nil {
		return nil, err
	}
	if len(previous) > 0 && cfg.SessionKeyID == "" {
		return nil, fmt.Errorf("SESSION_KEY_ID is required when SESSION_PREVIOUS_SECRETS is set")
	}
	if _, clash := previous[cfg.SessionKeyID]; clash && cfg.SessionKeyID != "" {
		return nil, fmt.Errorf("SESSION_PREVIOUS_SECRETS reuses the current key id %q", cfg.SessionKeyID)
	}
	cfg.PreviousSecrets = previous

	if cfg.SessionExpiry < time.Second {
		return nil, fmt.Errorf("REDIS_SESSION_EXPIRY must be positive")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// EngineConfig maps process settings onto a goSession.Config. Cookies are
// Secure in production only.
func (c *Config) EngineConfig() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.Session.TTL = c.SessionExpiry
	cfg.Cookie.Name = c.CookieName
	cfg.Cookie.Secure = c.IsProduction()
	cfg.Cookie.SameSite = http.SameSiteLaxMode
	cfg.Cookie.Secret = c.SessionSecret
	cfg.Cookie.KeyID = c.SessionKeyID
	cfg.Cookie.PreviousKeys = c.PreviousSecrets
	cfg.Store.KeyPrefix = c.KeyPrefix
	cfg.Store.OpTimeout = c.RedisTimeout
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	cfg.Audit.Enabled = c.AuditEnabled
	return cfg
}

// parsePreviousSecrets reads "kid:secret,kid2:secret2".
func parsePreviousSecrets(raw string) (map[string][]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	out := make(map[string][]byte)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kid, secret, ok := strings.Cut(entry, ":")
		kid = strings.TrimSpace(kid)
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("SESSION_PREVIOUS_SECRETS entry must be kid:secret")
		}
		if len(secret) < minSecretBytes {
			return nil, fmt.Errorf("SESSION_PREVIOUS_SECRETS secret for %q must be at least %d bytes", kid, minSecretBytes)
		}
		if _, dup := out[kid]; dup {
			return nil, fmt.Errorf("SESSION_PREVIOUS_SECRETS repeats key id %q", kid)
		}
		out[kid] = []byte(secret)
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts a Go duration ("750ms") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
