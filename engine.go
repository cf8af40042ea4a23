package zikauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fpierr/zikauth/internal"
	"github.com/Fpierr/zikauth/internal/audit"
	"github.com/Fpierr/zikauth/internal/flows"
	"github.com/Fpierr/zikauth/internal/logattr"
	"github.com/Fpierr/zikauth/internal/stores"
	"github.com/Fpierr/zikauth/jwt"
	"github.com/Fpierr/zikauth/password"
	"github.com/Fpierr/zikauth/session"
)

// Engine authenticates requests and manages the session lifecycle. It is safe for
// concurrent use once built.
type Engine struct {
	config       Config
	logger       *slog.Logger
	jwtManager   *jwt.Manager
	sessionStore *session.Store
	revocations  *stores.RevocationStore
	userProvider UserProvider
	passwordHash *password.Hasher
	audit        *audit.Emitter
	metrics      *Metrics
}

// Close flushes pending audit events. The Redis client is owned by the caller.
func (e *Engine) Close() {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns how many audit events were discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
AUTHENTICATE
====================================
*/

// Authenticate resolves the request's channel, verifies the access token, loads the
// session record and checks it belongs to the token subject and carries the presented
// CSRF token.
//
// A request that declares no client type returns ErrNoChannel and should be treated as
// anonymous. Every other error is final: an authentication failure (IsAuthFailure) or
// an infrastructure failure (IsUnavailable).
func (e *Engine) Authenticate(r *http.Request) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	return e.authenticate(r, e.jwtManager.ParseAccess)
}

// AuthenticateForRefresh is Authenticate for the refresh endpoint. Under
// RefreshAllowExpiredAccess it accepts an access token that expired at most
// Refresh.MaxExpiredAccessAge ago; the signature is always verified.
func (e *Engine) AuthenticateForRefresh(r *http.Request) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	parse := e.jwtManager.ParseAccess
	if e.config.Refresh.AccessPolicy == RefreshAllowExpiredAccess {
		maxAge := e.config.Refresh.MaxExpiredAccessAge
		parse = func(token string) (*jwt.Claims, error) {
			return e.jwtManager.ParseAccessAllowExpired(token, maxAge)
		}
	}
	return e.authenticate(r, parse)
}

func (e *Engine) authenticate(r *http.Request, parse func(string) (*jwt.Claims, error)) (*AuthResult, error) {
	ctx := r.Context()
	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}()

	res := flows.RunAuthenticate(ctx, r, flows.AuthenticateDeps{
		ParseAccess:     parse,
		GetUserByID:     e.lookupUserByID,
		UserNotFound:    ErrUserNotFound,
		SessionStore:    e.sessionStore,
		SessionNotFound: session.ErrSessionNotFound,
	})

	ch := Channel(res.Channel)

	switch res.Failure {
	case flows.FailureNone:
		e.metricInc(MetricAuthSuccess)
		return &AuthResult{
			UserID:    res.User.UserID,
			User:      identityFromFlow(res.User),
			Claims:    res.Claims,
			SessionID: res.SessionID,
			Channel:   ch,
		}, nil
	case flows.FailureNoChannel:
		e.metricInc(MetricAuthAnonymous)
		return nil, ErrNoChannel
	}

	err := e.mapFailure(res.Failure, res.Err)
	if IsUnavailable(err) {
		e.logger.LogAttrs(ctx, slog.LevelError, "authenticate: backend unavailable",
			logattr.Reason(res.Failure.String()),
			logattr.Channel(string(ch)),
			logattr.Error(res.Err),
		)
		return nil, err
	}

	e.metricInc(authFailureMetric(res.Failure))
	e.logger.LogAttrs(ctx, slog.LevelWarn, "authenticate: rejected",
		logattr.Reason(res.Failure.String()),
		logattr.Channel(string(ch)),
		logattr.UserID(res.User.UserID),
		logattr.Session(res.SessionID),
	)
	e.emitAudit(ctx, AuditEventAuthFailure, false, res.User.UserID, res.SessionID, ch, res.Failure.String(), nil)

	return nil, err
}

func authFailureMetric(kind flows.FailureKind) MetricID {
	switch kind {
	case flows.FailureMixedChannel:
		return MetricAuthMixedChannel
	case flows.FailureMissingCredentials:
		return MetricAuthMissingCredentials
	case flows.FailureInvalidSession:
		return MetricAuthInvalidSession
	case flows.FailureSessionUserMismatch:
		return MetricAuthSessionUserMismatch
	case flows.FailureCSRFMismatch:
		return MetricAuthCSRFMismatch
	default:
		return MetricAuthInvalidToken
	}
}

/*
====================================
LOGIN
====================================
*/

// Login verifies identifier and password and opens a new session. Unknown users,
// wrong passwords and inactive accounts all return ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, identifier, password string) (*Tokens, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, identifier, password, flows.LoginDeps{
		GetUserByIdentifier: e.lookupUserByIdentifier,
		UserNotFound:        ErrUserNotFound,
		VerifyPassword:      e.passwordHash.Verify,
		VerifyUnknown:       e.passwordHash.VerifyUnknown,
		IssueAccess:         e.jwtManager.CreateAccess,
		IssueRefresh:        e.jwtManager.CreateRefresh,
		NewCSRFToken:        internal.NewCSRFToken,
		SessionStore:        e.sessionStore,
	})

	if res.Failure != flows.FailureNone {
		err := e.mapFailure(res.Failure, res.Err)
		e.metricInc(MetricLoginFailure)
		e.logFailure(ctx, "login: failed", err, res.Failure, res.Err, logattr.UserID(res.User.UserID))
		e.emitAudit(ctx, AuditEventLoginFailure, false, res.User.UserID, "", "", res.Failure.String(), nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.logger.LogAttrs(ctx, slog.LevelInfo, "login: session opened",
		logattr.UserID(res.User.UserID),
		logattr.Session(res.SessionID),
	)
	e.emitAudit(ctx, AuditEventLoginSuccess, true, res.User.UserID, res.SessionID, "", "", nil)

	return e.tokens(identityFromFlow(res.User), res.Access, res.Refresh, res.SessionID, res.CSRFToken), nil
}

/*
====================================
REFRESH
====================================
*/

// Refresh rotates the refresh token and the session of an authenticated caller. The
// presented refresh token must be the one bound to the session; presenting an older
// or foreign token is ErrRefreshReuse and, with DeleteSessionOnReuse, ends the session.
// An empty req.SessionID means the caller's authenticated session.
func (e *Engine) Refresh(ctx context.Context, auth *AuthResult, req RefreshRequest) (*Tokens, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if auth == nil || auth.UserID == "" {
		return nil, ErrMissingCredentials
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = auth.SessionID
	}

	res := flows.RunRefresh(ctx, flows.RefreshInput{
		CallerUserID: auth.UserID,
		RefreshToken: req.RefreshToken,
		SessionID:    sessionID,
	}, flows.RefreshDeps{
		ParseRefresh:    e.jwtManager.ParseRefresh,
		IssueAccess:     e.jwtManager.CreateAccess,
		IssueRefresh:    e.jwtManager.CreateRefresh,
		NewCSRFToken:    internal.NewCSRFToken,
		SessionStore:    e.sessionStore,
		SessionNotFound: session.ErrSessionNotFound,
		Revocations:     e.revocations,
		DeleteOnReuse:   e.config.Refresh.DeleteSessionOnReuse,
		Warn: func(msg string, args ...any) {
			e.logger.WarnContext(ctx, msg, args...)
		},
	})

	switch res.Failure {
	case flows.FailureNone:
	case flows.FailureRefreshReuse:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		if res.SessionDeleted {
			e.metricInc(MetricSessionDeleted)
		}
		e.logger.LogAttrs(ctx, slog.LevelWarn, "refresh: reuse detected",
			logattr.UserID(auth.UserID),
			logattr.Session(sessionID),
			slog.Bool("session_deleted", res.SessionDeleted),
			logattr.Error(res.Err),
		)
		e.emitAudit(ctx, AuditEventRefreshReuseDetected, false, auth.UserID, sessionID, auth.Channel, res.Failure.String(), func() map[string]string {
			return map[string]string{"session_deleted": fmt.Sprint(res.SessionDeleted)}
		})
		return nil, ErrRefreshReuse
	default:
		err := e.mapFailure(res.Failure, res.Err)
		e.metricInc(MetricRefreshFailure)
		e.logFailure(ctx, "refresh: failed", err, res.Failure, res.Err, logattr.UserID(auth.UserID), logattr.Session(sessionID))
		e.emitAudit(ctx, AuditEventRefreshFailure, false, auth.UserID, sessionID, auth.Channel, res.Failure.String(), nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.metricInc(MetricSessionDeleted)
	e.metricInc(MetricSessionCreated)
	e.logger.LogAttrs(ctx, slog.LevelInfo, "refresh: session rotated",
		logattr.UserID(auth.UserID),
		logattr.Session(res.SessionID),
		logattr.TokenID(res.Refresh.TokenID),
	)
	e.emitAudit(ctx, AuditEventRefreshSuccess, true, auth.UserID, res.SessionID, auth.Channel, "", nil)

	return e.tokens(auth.User, res.Access, res.Refresh, res.SessionID, res.CSRFToken), nil
}

/*
====================================
LOGOUT
====================================
*/

// Logout deletes the caller's session. A refresh token in req is blacklisted best
// effort, and only when it belongs to the caller; failing to blacklist it is logged
// and does not fail the logout.
func (e *Engine) Logout(ctx context.Context, auth *AuthResult, req LogoutRequest) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	if auth == nil || auth.UserID == "" {
		return ErrMissingCredentials
	}

	res := flows.RunLogout(ctx, auth.UserID, auth.SessionID, req.RefreshToken, flows.LogoutDeps{
		ParseRefresh: e.jwtManager.ParseRefresh,
		SessionStore: e.sessionStore,
		Revocations:  e.revocations,
	})
	if res.Failure != flows.FailureNone {
		err := e.mapFailure(res.Failure, res.Err)
		e.logFailure(ctx, "logout: failed", err, res.Failure, res.Err, logattr.UserID(auth.UserID))
		return err
	}

	if res.RevokeErr != nil {
		e.metricInc(MetricRevocationFailure)
		e.logger.LogAttrs(ctx, slog.LevelWarn, "logout: refresh token not blacklisted",
			logattr.UserID(auth.UserID),
			logattr.Error(res.RevokeErr),
		)
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionDeleted)
	e.emitAudit(ctx, AuditEventLogout, true, auth.UserID, auth.SessionID, auth.Channel, "", func() map[string]string {
		return map[string]string{"refresh_revoked": fmt.Sprint(res.Revoked)}
	})
	return nil
}

/*
====================================
HEALTH
====================================
*/

// Ping checks the session backend and returns its round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	d, err := e.sessionStore.Ping(ctx)
	if err != nil {
		e.metricInc(MetricBackendUnavailable)
		return 0, fmt.Errorf("%w: %w", ErrSessionBackendUnavailable, err)
	}
	return d, nil
}

/*
====================================
HELPERS
====================================
*/

// mapFailure turns a flow failure into the public error. Authentication failures
// return the bare sentinel so nothing about the cause reaches the client.
func (e *Engine) mapFailure(kind flows.FailureKind, cause error) error {
	switch kind {
	case flows.FailureNone:
		return nil
	case flows.FailureNoChannel:
		return ErrNoChannel
	case flows.FailureMixedChannel:
		return ErrMixedChannel
	case flows.FailureMissingCredentials:
		return ErrMissingCredentials
	case flows.FailureInvalidToken:
		return ErrInvalidToken
	case flows.FailureInvalidSession:
		return ErrInvalidSession
	case flows.FailureSessionUserMismatch:
		return ErrSessionUserMismatch
	case flows.FailureCSRFMismatch:
		return ErrCSRFMismatch
	case flows.FailureRefreshReuse:
		return ErrRefreshReuse
	case flows.FailureInvalidCredentials:
		return ErrInvalidCredentials
	case flows.FailureStoreUnavailable:
		e.metricInc(MetricBackendUnavailable)
		return wrapCause(ErrSessionBackendUnavailable, cause)
	case flows.FailureUserProviderUnavailable:
		e.metricInc(MetricBackendUnavailable)
		return wrapCause(ErrUserProviderUnavailable, cause)
	default:
		return wrapCause(errors.New("zikauth: internal error"), cause)
	}
}

func wrapCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

func (e *Engine) logFailure(ctx context.Context, msg string, err error, kind flows.FailureKind, cause error, attrs ...slog.Attr) {
	level := slog.LevelWarn
	if IsUnavailable(err) || kind == flows.FailureInternal {
		level = slog.LevelError
	}
	attrs = append(attrs, logattr.Reason(kind.String()), logattr.Error(cause))
	e.logger.LogAttrs(ctx, level, msg, attrs...)
}

func (e *Engine) tokens(user Identity, access, refresh jwt.Issued, sessionID, csrf string) *Tokens {
	return &Tokens{
		User:             user,
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
		SessionID:        sessionID,
		SessionExpiresAt: time.Now().Add(e.sessionStore.TTL()),
		CSRFToken:        csrf,
	}
}

func (e *Engine) lookupUserByID(ctx context.Context, userID string) (flows.UserRecord, error) {
	u, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return flows.UserRecord{}, err
	}
	return flowUser(u), nil
}

func (e *Engine) lookupUserByIdentifier(ctx context.Context, identifier string) (flows.UserRecord, error) {
	u, err := e.userProvider.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		return flows.UserRecord{}, err
	}
	return flowUser(u), nil
}

func flowUser(u UserRecord) flows.UserRecord {
	return flows.UserRecord{
		UserID:       u.UserID,
		Identifier:   u.Email,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Active:       u.Active,
	}
}

func identityFromFlow(u flows.UserRecord) Identity {
	return Identity{ID: u.UserID, Name: u.Name, Email: u.Email, Role: u.Role, Active: u.Active}
}
