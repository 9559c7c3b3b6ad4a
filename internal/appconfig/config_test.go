package appconfig

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var envKeys = []string{
	"ENV", "NODE_ENV", "PORT", "LOG_LEVEL",
	"SESSION_SECRET", "SESSION_KEY_ID", "SESSION_PREVIOUS_SECRETS", "SESSION_COOKIE_NAME",
	"REDIS_URL", "REDIS_SESSION_EXPIRY", "REDIS_TIMEOUT", "REDIS_KEY_PREFIX",
	"DATABASE_URL", "METRICS_ENABLED", "AUDIT_ENABLED",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, 24*time.Hour, cfg.SessionExpiry)
	assert.Equal(t, 2*time.Second, cfg.RedisTimeout)
	assert.Equal(t, goSession.DefaultCookieName, cfg.CookieName)
	assert.Empty(t, cfg.DatabaseURL)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.IsProduction())

	assert.True(t, cfg.GeneratedSecret)
	assert.Len(t, cfg.SessionSecret, minSecretBytes)
}

func TestLoadReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("SESSION_KEY_ID", "k2")
	t.Setenv("SESSION_PREVIOUS_SECRETS", "k1:"+strings.Repeat("x", 32)+", k0:"+strings.Repeat("y", 40))
	t.Setenv("REDIS_URL", "redis://cache:6380/1")
	t.Setenv("REDIS_SESSION_EXPIRY", "3600")
	t.Setenv("REDIS_TIMEOUT", "750ms")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/app")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []byte(testSecret), cfg.SessionSecret)
	assert.False(t, cfg.GeneratedSecret)
	assert.Equal(t, "k2", cfg.SessionKeyID)
	require.Len(t, cfg.PreviousSecrets, 2)
	assert.Equal(t, []byte(strings.Repeat("x", 32)), cfg.PreviousSecrets["k1"])
	assert.Equal(t, []byte(strings.Repeat("y", 40)), cfg.PreviousSecrets["k0"])
	assert.Equal(t, "redis://cache:6380/1", cfg.RedisURL)
	assert.Equal(t, time.Hour, cfg.SessionExpiry)
	assert.Equal(t, 750*time.Millisecond, cfg.RedisTimeout)
	assert.Equal(t, "postgres://u:p@db/app", cfg.DatabaseURL)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoadNodeEnvFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "production")
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret in production": {"ENV": "production"},
		"short secret":                 {"SESSION_SECRET": "short"},
		"previous without key id":      {"SESSION_SECRET": testSecret, "SESSION_PREVIOUS_SECRETS": "k1:" + testSecret},
		"malformed previous entry":     {"SESSION_SECRET": testSecret, "SESSION_KEY_ID": "k2", "SESSION_PREVIOUS_SECRETS": "nocolon"},
		"short previous secret":        {"SESSION_SECRET": testSecret, "SESSION_KEY_ID": "k2", "SESSION_PREVIOUS_SECRETS": "k1:abc"},
		"duplicate previous kid":       {"SESSION_SECRET": testSecret, "SESSION_KEY_ID": "k2", "SESSION_PREVIOUS_SECRETS": "k1:" + testSecret + ",k1:" + testSecret},
		"previous reuses current kid":  {"SESSION_SECRET": testSecret, "SESSION_KEY_ID": "k1", "SESSION_PREVIOUS_SECRETS": "k1:" + testSecret},
		"non-positive expiry":          {"SESSION_SECRET": testSecret, "REDIS_SESSION_EXPIRY": "0"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestEngineConfigValidates(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("SESSION_KEY_ID", "k2")
	t.Setenv("SESSION_PREVIOUS_SECRETS", "k1:"+testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	ec := cfg.EngineConfig()
	require.NoError(t, ec.Validate())
	assert.False(t, ec.Cookie.Secure, "development cookies are not Secure")
	assert.Equal(t, http.SameSiteLaxMode, ec.Cookie.SameSite)
	assert.Equal(t, 24*time.Hour, ec.Session.TTL)
	assert.Equal(t, "k2", ec.Cookie.KeyID)
	assert.Contains(t, ec.Cookie.PreviousKeys, "k1")

	cfg.Env = "production"
	assert.True(t, cfg.EngineConfig().Cookie.Secure)
}

func TestGetEnvHelpersIgnoreGarbage(t *testing.T) {
	t.Setenv("APPCONFIG_TEST_INT", "abc")
	t.Setenv("APPCONFIG_TEST_BOOL", "maybe")
	t.Setenv("APPCONFIG_TEST_DUR", "soon")

	assert.Equal(t, 7, getEnvInt("APPCONFIG_TEST_INT", 7))
	assert.True(t, getEnvBool("APPCONFIG_TEST_BOOL", true))
	assert.Equal(t, time.Minute, getEnvDuration("APPCONFIG_TEST_DUR", time.Minute))

	t.Setenv("APPCONFIG_TEST_DUR", "5")
	assert.Equal(t, 5*time.Second, getEnvDuration("APPCONFIG_TEST_DUR", time.Minute))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "warn")
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v", line["k"])

	buf.Reset()
	NewLogger(&buf, "development", "debug").Debug("dev line")
	assert.Contains(t, buf.String(), "msg=\"dev line\"")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
