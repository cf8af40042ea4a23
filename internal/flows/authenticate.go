package flows

import (
	"context"
	"errors"
	"net/http"

	"github.com/Fpierr/zikauth/internal/channel"
	"github.com/Fpierr/zikauth/jwt"
	"github.com/Fpierr/zikauth/session"
)

// AuthenticateResult is either a verified identity or a classified failure.
type AuthenticateResult struct {
	Failure   FailureKind
	Err       error
	Channel   channel.Channel
	Claims    *jwt.Claims
	User      UserRecord
	SessionID string
	Record    *session.Record
}

// AuthenticateDeps captures the authenticate flow dependencies.
type AuthenticateDeps struct {
	// ParseAccess verifies the access token. The refresh path swaps in a parser
	// that tolerates recent expiry.
	ParseAccess     func(string) (*jwt.Claims, error)
	GetUserByID     func(context.Context, string) (UserRecord, error)
	UserNotFound    error
	SessionStore    SessionStore
	SessionNotFound error
}

// RunAuthenticate extracts credentials, verifies the token, resolves the user and
// cross-checks the session record and CSRF token.
func RunAuthenticate(ctx context.Context, r *http.Request, deps AuthenticateDeps) AuthenticateResult {
	creds, kind := channel.Extract(r)
	switch kind {
	case channel.FailureNoChannel:
		return AuthenticateResult{Failure: FailureNoChannel}
	case channel.FailureMixed:
		return AuthenticateResult{Failure: FailureMixedChannel, Channel: creds.Channel}
	case channel.FailureMissing:
		return AuthenticateResult{Failure: FailureMissingCredentials, Channel: creds.Channel}
	}

	claims, err := deps.ParseAccess(creds.AccessToken)
	if err != nil {
		return AuthenticateResult{Failure: FailureInvalidToken, Err: err, Channel: creds.Channel}
	}

	user, err := deps.GetUserByID(ctx, claims.UserID())
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return AuthenticateResult{Failure: FailureInvalidToken, Err: err, Channel: creds.Channel}
		}
		return AuthenticateResult{Failure: FailureUserProviderUnavailable, Err: err, Channel: creds.Channel}
	}
	if !user.Active {
		return AuthenticateResult{Failure: FailureInvalidToken, Err: errors.New("user inactive"), Channel: creds.Channel}
	}

	result := AuthenticateResult{
		Channel:   creds.Channel,
		Claims:    claims,
		User:      user,
		SessionID: creds.SessionID,
	}

	rec, err := deps.SessionStore.Get(ctx, creds.SessionID)
	if err != nil {
		result.Err = err
		if deps.SessionNotFound != nil && errors.Is(err, deps.SessionNotFound) {
			result.Failure = FailureInvalidSession
		} else {
			result.Failure = FailureStoreUnavailable
		}
		return result
	}
	result.Record = rec

	if rec.UserID != claims.UserID() {
		result.Failure = FailureSessionUserMismatch
		return result
	}
	if !equalSecret(rec.CSRFToken, creds.CSRFToken) {
		result.Failure = FailureCSRFMismatch
		return result
	}

	return result
}
