package flows

import (
	"context"
	"errors"

	"github.com/Fpierr/zikauth/jwt"
)

// LogoutResult reports the outcome of a logout. Only a session delete failure is
// fatal; RevokeErr is informational.
type LogoutResult struct {
	Failure   FailureKind
	Err       error
	Revoked   bool
	RevokeErr error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ParseRefresh func(string) (*jwt.Claims, error)
	SessionStore SessionStore
	Revocations  RevocationStore
}

// RunLogout deletes the session and, best effort, blacklists the caller's refresh token.
func RunLogout(ctx context.Context, callerUserID, sessionID, refreshToken string, deps LogoutDeps) LogoutResult {
	if sessionID != "" {
		if err := deps.SessionStore.Delete(ctx, sessionID); err != nil {
			return LogoutResult{Failure: FailureStoreUnavailable, Err: err}
		}
	}

	if refreshToken == "" {
		return LogoutResult{}
	}

	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return LogoutResult{RevokeErr: err}
	}
	if claims.UserID() != callerUserID {
		return LogoutResult{RevokeErr: errors.New("refresh token belongs to another user")}
	}

	if _, err := deps.Revocations.Revoke(ctx, claims.TokenID(), claims.ExpiresAtTime()); err != nil {
		return LogoutResult{RevokeErr: err}
	}
	return LogoutResult{Revoked: true}
}
