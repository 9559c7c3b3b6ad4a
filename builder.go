package goSession

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/cleanup"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, then discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserDirectory
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration, including settings made by earlier
// With* calls.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the session store backend. Single-node and sentinel
// clients are accepted; Build rejects cluster and ring clients with
// [ErrShardedRedis].
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserDirectory sets the credential collaborator. If it also implements
// [UserRegistrar], Register is enabled.
func (b *Builder) WithUserDirectory(users UserDirectory) *Builder {
	b.users = users
	return b
}

// WithAuditSink sets the sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithLogger sets the operational logger. Without one the Engine logs to
// io.Discard.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for cookie timestamps, expiry checks and audit.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the Engine counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. A Builder can
// only be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	switch b.redis.(type) {
	case *redis.ClusterClient, *redis.Ring:
		return nil, ErrShardedRedis
	}
	if b.users == nil {
		return nil, errors.New("user directory required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- COOKIE CODEC --------
	codec, err := cookie.NewCodec(cookie.Config{
		Secret:     cloneBytes(cfg.Cookie.Secret),
		KeyID:      cfg.Cookie.KeyID,
		VerifyKeys: cfg.Cookie.PreviousKeys,
		Issuer:     cfg.Cookie.Issuer,
		Leeway:     cfg.Cookie.Leeway,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	store := session.NewStore(b.redis, cfg.Store.KeyPrefix, cfg.Store.OpTimeout)

	engine := &Engine{
		config:  cfg,
		store:   store,
		codec:   codec,
		users:   b.users,
		logger:  logger,
		now:     now,
		metrics: NewMetrics(cfg.Metrics),
	}
	if registrar, ok := b.users.(UserRegistrar); ok {
		engine.registrar = registrar
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop:     engine.onAuditDrop,
	}, b.auditSink)

	// -------- CLEANUP QUEUE --------
	if cfg.Cleanup.Enabled {
		engine.cleanup = cleanup.New(cleanup.Config{
			Workers:   cfg.Cleanup.Workers,
			QueueSize: cfg.Cleanup.QueueSize,
			Timeout:   cfg.Cleanup.Timeout,
			OnError:   engine.onCleanupError,
		}, engine.runCleanup)
	}

	engine.flows = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}

func (e *Engine) buildFlowDeps() flows.Deps {
	decode := func(token string) (string, string, error) {
		p, err := e.codec.Decode(token)
		if err != nil {
			return "", "", err
		}
		if _, err := internal.ParseSessionID(p.SessionID); err != nil {
			return "", "", err
		}
		return p.UserID, p.SessionID, nil
	}
	decodeExpired := func(token string) (string, string, error) {
		p, err := e.codec.DecodeIgnoringExpiry(token)
		if err != nil {
			return "", "", err
		}
		return p.UserID, p.SessionID, nil
	}

	login := flows.LoginDeps{
		Verify: e.users.Verify,
		LookupUserID: func(ctx context.Context, email string) (string, error) {
			u, err := e.users.GetByEmail(ctx, email)
			if err != nil {
				return "", err
			}
			return u.ID, nil
		},
		NewSessionID: internal.NewSessionIDString,
		EncodeCookie: func(userID, sessionID string, issuedAt, expiresAt time.Time) (string, error) {
			return e.codec.Encode(cookie.Payload{
				UserID:    userID,
				SessionID: sessionID,
				IssuedAt:  issuedAt,
				ExpiresAt: expiresAt,
			})
		},
		SessionStore:    e.store,
		SessionTTL:      e.config.Session.TTL,
		Now:             e.now,
		OnRevokeFailure: e.onRevokeFailure,
		Errors: flows.LoginErrors{
			InvalidCredentials:    ErrInvalidCredentials,
			DirectoryUnavailable:  ErrDirectoryUnavailable,
			StoreUnavailable:      ErrStoreUnavailable,
			SessionCreationFailed: ErrSessionCreationFailed,
			UserNotFound:          ErrUserNotFound,
		},
	}

	var createUser func(ctx context.Context, email, password, name string) (string, error)
	if e.registrar != nil {
		createUser = func(ctx context.Context, email, password, name string) (string, error) {
			u, err := e.registrar.Create(ctx, NewUser{Email: email, Password: password, Name: name})
			if err != nil {
				return "", err
			}
			return u.ID, nil
		}
	}

	return flows.Deps{
		Login: login,
		Validate: flows.ValidateDeps{
			Decode:          decode,
			SessionStore:    e.store,
			UserExists:      e.users.Exists,
			ScheduleCleanup: e.scheduleCleanup,
			StoreNotFound:   session.ErrNotFound,
		},
		Logout: flows.LogoutDeps{
			Decode:       decodeExpired,
			SessionStore: e.store,
		},
		Register: flows.RegisterDeps{
			MinPasswordLength: e.config.Registration.MinPasswordLength,
			MaxPasswordBytes:  e.config.Registration.MaxPasswordBytes,
			MinNameLength:     e.config.Registration.MinNameLength,
			CreateUser:        createUser,
			Errors: flows.RegisterErrors{
				Invalid:              ErrInvalidRegistration,
				Exists:               ErrAccountExists,
				DirectoryUnavailable: ErrDirectoryUnavailable,
			},
			Login: login,
		},
	}
}
