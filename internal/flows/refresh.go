package flows

import (
	"context"
	"errors"

	"github.com/Fpierr/zikauth/jwt"
)

// RefreshInput is what the refresh endpoint collected from the request.
type RefreshInput struct {
	// CallerUserID is the user the request authenticated as.
	CallerUserID string
	RefreshToken string
	SessionID    string
}

// RefreshResult carries either the rotated credentials or failure metadata.
type RefreshResult struct {
	Failure      FailureKind
	Err          error
	UserID       string
	OldSessionID string
	// SessionDeleted is set when a reuse signal caused the targeted session to be removed.
	SessionDeleted bool
	SessionID      string
	CSRFToken      string
	Access         jwt.Issued
	Refresh        jwt.Issued
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh    func(string) (*jwt.Claims, error)
	IssueAccess     func(userID string) (jwt.Issued, error)
	IssueRefresh    func(userID string) (jwt.Issued, error)
	NewCSRFToken    func() (string, error)
	SessionStore    SessionStore
	SessionNotFound error
	Revocations     RevocationStore
	DeleteOnReuse   bool
	Warn            func(string, ...any)
}

// RunRefresh validates the presented refresh token against the session record and
// rotates both. The old jti is blacklisted with set-if-absent semantics so two
// concurrent refreshes with the same token cannot both succeed.
func RunRefresh(ctx context.Context, in RefreshInput, deps RefreshDeps) RefreshResult {
	res := RefreshResult{UserID: in.CallerUserID, OldSessionID: in.SessionID}

	if in.RefreshToken == "" || in.SessionID == "" {
		res.Failure = FailureMissingCredentials
		return res
	}

	rec, err := deps.SessionStore.Get(ctx, in.SessionID)
	if err != nil {
		res.Err = err
		if deps.SessionNotFound != nil && errors.Is(err, deps.SessionNotFound) {
			res.Failure = FailureInvalidSession
		} else {
			res.Failure = FailureStoreUnavailable
		}
		return res
	}

	claims, err := deps.ParseRefresh(in.RefreshToken)
	if err != nil {
		res.Failure = FailureInvalidToken
		res.Err = err
		return res
	}

	if rec.UserID != in.CallerUserID {
		res.Failure = FailureSessionUserMismatch
		return res
	}

	if claims.UserID() != rec.UserID || !equalSecret(claims.TokenID(), rec.RefreshTokenID) {
		return deps.reuse(ctx, res, errors.New("refresh token does not match session"))
	}

	revoked, err := deps.Revocations.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		res.Failure = FailureStoreUnavailable
		res.Err = err
		return res
	}
	if revoked {
		return deps.reuse(ctx, res, errors.New("refresh token already revoked"))
	}

	won, err := deps.Revocations.Revoke(ctx, claims.TokenID(), claims.ExpiresAtTime())
	if err != nil {
		res.Failure = FailureStoreUnavailable
		res.Err = err
		return res
	}
	if !won {
		return deps.reuse(ctx, res, errors.New("refresh token revoked concurrently"))
	}

	access, err := deps.IssueAccess(rec.UserID)
	if err != nil {
		res.Failure = FailureInternal
		res.Err = err
		return res
	}
	refresh, err := deps.IssueRefresh(rec.UserID)
	if err != nil {
		res.Failure = FailureInternal
		res.Err = err
		return res
	}
	csrf, err := deps.NewCSRFToken()
	if err != nil {
		res.Failure = FailureInternal
		res.Err = err
		return res
	}

	if err := deps.SessionStore.Delete(ctx, in.SessionID); err != nil {
		res.Failure = FailureStoreUnavailable
		res.Err = err
		return res
	}
	sessionID, err := deps.SessionStore.Create(ctx, rec.UserID, csrf, refresh.TokenID)
	if err != nil {
		res.Failure = createFailure(err)
		res.Err = err
		return res
	}

	res.SessionID = sessionID
	res.CSRFToken = csrf
	res.Access = access
	res.Refresh = refresh
	return res
}

func (deps RefreshDeps) reuse(ctx context.Context, res RefreshResult, cause error) RefreshResult {
	res.Failure = FailureRefreshReuse
	res.Err = cause
	if !deps.DeleteOnReuse {
		return res
	}
	if err := deps.SessionStore.Delete(ctx, res.OldSessionID); err != nil {
		if deps.Warn != nil {
			deps.Warn("refresh reuse: session delete failed", "error", err)
		}
		return res
	}
	res.SessionDeleted = true
	return res
}
