package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/Fpierr/zikauth/session"
)

// FailureKind classifies flow failures for root-level error mapping.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureNoChannel
	FailureMixedChannel
	FailureMissingCredentials
	FailureInvalidToken
	FailureInvalidSession
	FailureSessionUserMismatch
	FailureCSRFMismatch
	FailureRefreshReuse
	FailureInvalidCredentials
	FailureStoreUnavailable
	FailureUserProviderUnavailable
	FailureInternal
)

var failureReasons = [...]string{
	FailureNone:                    "",
	FailureNoChannel:               "no_channel",
	FailureMixedChannel:            "mixed_channel",
	FailureMissingCredentials:      "missing_credentials",
	FailureInvalidToken:            "invalid_token",
	FailureInvalidSession:          "invalid_session",
	FailureSessionUserMismatch:     "session_user_mismatch",
	FailureCSRFMismatch:            "csrf_mismatch",
	FailureRefreshReuse:            "refresh_reuse",
	FailureInvalidCredentials:      "invalid_credentials",
	FailureStoreUnavailable:        "store_unavailable",
	FailureUserProviderUnavailable: "user_provider_unavailable",
	FailureInternal:                "internal",
}

// String returns the snake_case reason used in logs, audit events and metrics.
func (k FailureKind) String() string {
	if k < 0 || int(k) >= len(failureReasons) {
		return "unknown"
	}
	return failureReasons[k]
}

// SessionStore is the subset of session.Store the flows use.
type SessionStore interface {
	Create(ctx context.Context, userID, csrfToken, refreshTokenID string) (string, error)
	Get(ctx context.Context, sessionID string) (*session.Record, error)
	Delete(ctx context.Context, sessionID string) error
}

// RevocationStore is the refresh-token blacklist.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, until time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// UserRecord is the flow-local view of a user returned by the provider.
type UserRecord struct {
	UserID       string
	Identifier   string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
}

// createFailure classifies a SessionStore.Create error. Only backend errors mean the
// store is unavailable; an id collision or an unencodable record is internal.
func createFailure(err error) FailureKind {
	if errors.Is(err, session.ErrStoreUnavailable) {
		return FailureStoreUnavailable
	}
	return FailureInternal
}

func equalSecret(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
