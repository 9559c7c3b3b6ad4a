package goSession

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/cleanup"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
)

// Engine is the authentication gateway. It issues, validates and revokes
// single-session cookies backed by the session store and the user directory.
//
// An Engine is safe for concurrent use once built.
type Engine struct {
	config    Config
	store     *session.Store
	codec     *cookie.Codec
	users     UserDirectory
	registrar UserRegistrar
	cleanup   *cleanup.Queue
	audit     *audit.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
	flows     flows.Deps
}

// Close drains the cleanup queue and then the audit dispatcher. It is safe to
// call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.cleanup.Close()
	e.audit.Close()
}

// AuditDropped reports audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// CleanupDropped reports cleanup tasks lost to a full queue.
func (e *Engine) CleanupDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.cleanup.Dropped()
}

// MetricsSnapshot copies the current counters and histograms. A nil Engine
// returns empty maps.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// CookieName is the configured session cookie name.
func (e *Engine) CookieName() string {
	return e.config.Cookie.Name
}

// Login verifies credentials, revokes every existing session of the user and
// issues a new one. Unknown email and wrong password both return
// [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, email, password, e.flows.Login)
	if res.Err != nil {
		e.metricInc(MetricLoginFailure)
		e.countDependencyFailure(res.Err)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, "", res.Err, nil)
		if !errors.Is(res.Err, ErrInvalidCredentials) {
			e.logger.ErrorContext(ctx, "login failed", "error", res.Err)
		}
		return nil, res.Err
	}

	e.afterSessionEstablished(ctx, res)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.UserID, res.SessionID, nil, func() map[string]string {
		return map[string]string{
			"revoked":    strconv.Itoa(res.Revoked),
			"expires_at": auditTimestamp(res.ExpiresAt),
		}
	})
	e.logger.InfoContext(ctx, "login",
		"user_id", res.UserID,
		"session", internal.ShortID(res.SessionID),
		"revoked", res.Revoked,
	)

	return e.loginResult(res), nil
}

// Register creates an account and logs it in. It requires a directory that
// implements [UserRegistrar] and Registration.Enabled.
func (e *Engine) Register(ctx context.Context, email, password, name string) (*LoginResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Registration.Enabled || e.registrar == nil {
		return nil, ErrRegistrationDisabled
	}

	res := flows.RunRegister(ctx, email, password, name, e.flows.Register)
	if res.Err != nil {
		switch {
		case errors.Is(res.Err, ErrAccountExists):
			e.metricInc(MetricRegisterDuplicate)
		case errors.Is(res.Err, ErrInvalidRegistration):
			e.metricInc(MetricRegisterInvalid)
		default:
			e.countDependencyFailure(res.Err)
			e.logger.ErrorContext(ctx, "register failed", "error", res.Err, "created", res.Created)
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, res.UserID, "", res.Err, nil)
		return nil, res.Err
	}

	e.afterSessionEstablished(ctx, res.LoginResult)
	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, res.UserID, res.SessionID, nil, nil)
	e.logger.InfoContext(ctx, "register", "user_id", res.UserID, "session", internal.ShortID(res.SessionID))

	return e.loginResult(res.LoginResult), nil
}

func (e *Engine) afterSessionEstablished(ctx context.Context, res flows.LoginResult) {
	e.metricInc(MetricSessionCreated)
	if res.Revoked > 0 {
		e.metrics.Add(MetricSessionRevoked, uint64(res.Revoked))
		e.emitAudit(ctx, auditEventSessionRevoked, true, res.UserID, "", nil, func() map[string]string {
			return map[string]string{"count": strconv.Itoa(res.Revoked), "cause": "login"}
		})
	}
}

func (e *Engine) loginResult(res flows.LoginResult) *LoginResult {
	return &LoginResult{
		UserID:    res.UserID,
		SessionID: res.SessionID,
		ExpiresAt: res.ExpiresAt,
		Revoked:   res.Revoked,
		Cookie:    e.SessionCookie(res.Token, res.ExpiresAt),
	}
}

func (e *Engine) onRevokeFailure(ctx context.Context, userID, sessionID string, err error) {
	e.metricInc(MetricSessionRevokeFailure)
	if sessionID == "" {
		e.logger.WarnContext(ctx, "session index delete failed", "user_id", userID, "error", err)
		return
	}
	e.logger.WarnContext(ctx, "session revoke failed",
		"user_id", userID,
		"session", internal.ShortID(sessionID),
		"error", err,
	)
}

// Validate resolves a cookie value to the user it authenticates. It never
// returns an error: every failure, including an unreachable store or
// directory, yields an unauthenticated result carrying the reason.
func (e *Engine) Validate(ctx context.Context, token string) AuthResult {
	if e == nil || e.codec == nil {
		return unauthenticated(ReasonStoreUnavailable)
	}
	if token == "" {
		return unauthenticated(ReasonNoCookie)
	}

	start := time.Now()
	res := flows.RunValidate(ctx, token, e.flows.Validate)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	if res.Failure == flows.ValidateFailureNone {
		e.metricInc(MetricValidateSuccess)
		return authenticated(res.UserID, res.SessionID)
	}

	reason := reasonFor(res.Failure)
	e.metricInc(MetricValidateFailure)
	switch reason {
	case ReasonStoreUnavailable:
		e.metricInc(MetricStoreUnavailable)
		e.logger.ErrorContext(ctx, "session store unavailable during validation", "error", res.Err)
	case ReasonDirectoryUnavailable:
		e.metricInc(MetricDirectoryUnavailable)
		e.logger.ErrorContext(ctx, "user directory unavailable during validation", "error", res.Err)
	default:
		e.logger.DebugContext(ctx, "session rejected", "reason", reason.String())
	}
	e.emitAudit(ctx, auditEventValidateRejected, false, res.UserID, res.SessionID, reasonErr(reason), func() map[string]string {
		return map[string]string{"reason": reason.String()}
	})

	return unauthenticated(reason)
}

func reasonFor(kind flows.ValidateFailureKind) Reason {
	switch kind {
	case flows.ValidateFailureMalformedCookie:
		return ReasonMalformedCookie
	case flows.ValidateFailureSessionNotFound:
		return ReasonSessionNotFound
	case flows.ValidateFailureSessionMismatch:
		return ReasonSessionMismatch
	case flows.ValidateFailureUserNotFound:
		return ReasonUserNotFound
	case flows.ValidateFailureDirectoryUnavailable:
		return ReasonDirectoryUnavailable
	default:
		return ReasonStoreUnavailable
	}
}

func reasonErr(r Reason) error {
	switch r {
	case ReasonMalformedCookie:
		return ErrMalformedCookie
	case ReasonSessionNotFound, ReasonSessionMismatch:
		return ErrSessionNotFound
	case ReasonUserNotFound:
		return ErrUserNotFound
	case ReasonDirectoryUnavailable:
		return ErrDirectoryUnavailable
	case ReasonStoreUnavailable:
		return ErrStoreUnavailable
	default:
		return ErrUnauthenticated
	}
}

// Logout removes the session named by token when it can be recovered, and
// always returns the instruction that clears the cookie. Expired cookies are
// still honored so their leftover records are removed.
func (e *Engine) Logout(ctx context.Context, token string) SessionCookie {
	if e == nil || e.codec == nil {
		return SessionCookie{}
	}

	res := flows.RunLogout(ctx, token, e.flows.Logout)
	switch {
	case res.Err != nil:
		e.metricInc(MetricStoreUnavailable)
		e.logger.WarnContext(ctx, "logout could not remove session",
			"user_id", res.UserID,
			"session", internal.ShortID(res.SessionID),
			"error", res.Err,
		)
	case res.SessionID != "":
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, true, res.UserID, res.SessionID, nil, func() map[string]string {
			return map[string]string{"removed": strconv.FormatBool(res.Removed)}
		})
	}

	return e.ClearedCookie()
}

// RevokeUser removes every session of userID. It is the administrative
// counterpart of the revocation Login performs.
func (e *Engine) RevokeUser(ctx context.Context, userID string) (int, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}

	members, err := e.store.MembersOf(ctx, userID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return 0, storeErr(err)
	}

	revoked := 0
	var firstErr error
	for _, sid := range members {
		if err := e.store.Delete(ctx, sid); err != nil {
			e.onRevokeFailure(ctx, userID, sid, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		revoked++
	}
	if err := e.store.DeleteIndex(ctx, userID); err != nil {
		e.onRevokeFailure(ctx, userID, "", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	e.metricInc(MetricRevokeUser)
	e.metrics.Add(MetricSessionRevoked, uint64(revoked))
	e.emitAudit(ctx, auditEventRevokeUser, firstErr == nil, userID, "", storeErr(firstErr), func() map[string]string {
		return map[string]string{"count": strconv.Itoa(revoked)}
	})

	return revoked, storeErr(firstErr)
}

// ActiveSessions lists the indexed session ids of userID. The index may still
// name sessions whose records have expired.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) ([]string, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	members, err := e.store.MembersOf(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return members, nil
}

// Ping reports whether the session store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return storeErr(e.store.Ping(ctx))
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}

func (e *Engine) countDependencyFailure(err error) {
	switch {
	case errors.Is(err, ErrStoreUnavailable):
		e.metricInc(MetricStoreUnavailable)
	case errors.Is(err, ErrDirectoryUnavailable):
		e.metricInc(MetricDirectoryUnavailable)
	}
}

// SessionCookie builds the Set-Cookie instruction for a freshly issued value.
func (e *Engine) SessionCookie(value string, expiresAt time.Time) SessionCookie {
	maxAge := int(expiresAt.Sub(e.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c := e.baseCookie()
	c.Value = value
	c.MaxAge = maxAge
	c.Expires = expiresAt.UTC()
	return c
}

// ClearedCookie is the instruction that deletes the session cookie.
func (e *Engine) ClearedCookie() SessionCookie {
	c := e.baseCookie()
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0).UTC()
	return c
}

func (e *Engine) baseCookie() SessionCookie {
	return SessionCookie{
		Name:     e.config.Cookie.Name,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Secure:   e.config.Cookie.Secure,
		HTTPOnly: true,
		SameSite: e.config.Cookie.SameSite,
	}
}

/*
====================================
CLEANUP
====================================
*/

func (e *Engine) scheduleCleanup(userID, sessionID string, kind flows.ValidateFailureKind) {
	if e.cleanup == nil {
		return
	}
	reason := reasonFor(kind).String()
	err := e.cleanup.Schedule(cleanup.Task{UserID: userID, SessionID: sessionID, Reason: reason})
	switch {
	case err == nil:
		e.metricInc(MetricCleanupScheduled)
	case errors.Is(err, cleanup.ErrQueueFull):
		e.metricInc(MetricCleanupDropped)
		e.logger.Warn("cleanup queue full, task dropped", "reason", reason, "session", internal.ShortID(sessionID))
	default:
		e.logger.Debug("cleanup queue closed, task skipped", "reason", reason, "session", internal.ShortID(sessionID))
	}
}

func (e *Engine) runCleanup(ctx context.Context, task cleanup.Task) error {
	_, err := e.store.Discard(ctx, task.UserID, task.SessionID)
	return err
}

func (e *Engine) onCleanupError(task cleanup.Task, err error) {
	e.metricInc(MetricCleanupFailed)
	e.logger.Warn("session cleanup failed",
		"user_id", task.UserID,
		"session", internal.ShortID(task.SessionID),
		"reason", task.Reason,
		"error", err,
	)
}
