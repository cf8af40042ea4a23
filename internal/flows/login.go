package flows

import (
	"context"
	"errors"

	"github.com/Fpierr/zikauth/jwt"
)

// LoginResult carries the minted credentials of a new session.
type LoginResult struct {
	Failure   FailureKind
	Err       error
	User      UserRecord
	Access    jwt.Issued
	Refresh   jwt.Issued
	SessionID string
	CSRFToken string
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	GetUserByIdentifier func(context.Context, string) (UserRecord, error)
	UserNotFound        error
	VerifyPassword      func(password, encodedHash string) (bool, error)
	// VerifyUnknown spends one verification when the user is unknown.
	VerifyUnknown func(password string)
	IssueAccess   func(userID string) (jwt.Issued, error)
	IssueRefresh  func(userID string) (jwt.Issued, error)
	NewCSRFToken  func() (string, error)
	SessionStore  SessionStore
}

// RunLogin verifies credentials and opens a session.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) LoginResult {
	if identifier == "" || password == "" {
		return LoginResult{Failure: FailureInvalidCredentials}
	}

	user, err := deps.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			if deps.VerifyUnknown != nil {
				deps.VerifyUnknown(password)
			}
			return LoginResult{Failure: FailureInvalidCredentials, Err: err}
		}
		return LoginResult{Failure: FailureUserProviderUnavailable, Err: err}
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return LoginResult{Failure: FailureInvalidCredentials, Err: err, User: user}
	}
	if !ok {
		return LoginResult{Failure: FailureInvalidCredentials, User: user}
	}
	if !user.Active {
		return LoginResult{Failure: FailureInvalidCredentials, Err: errors.New("user inactive"), User: user}
	}

	return openSession(ctx, user, deps.IssueAccess, deps.IssueRefresh, deps.NewCSRFToken, deps.SessionStore)
}

func openSession(
	ctx context.Context,
	user UserRecord,
	issueAccess, issueRefresh func(string) (jwt.Issued, error),
	newCSRF func() (string, error),
	store SessionStore,
) LoginResult {
	access, err := issueAccess(user.UserID)
	if err != nil {
		return LoginResult{Failure: FailureInternal, Err: err, User: user}
	}
	refresh, err := issueRefresh(user.UserID)
	if err != nil {
		return LoginResult{Failure: FailureInternal, Err: err, User: user}
	}
	csrf, err := newCSRF()
	if err != nil {
		return LoginResult{Failure: FailureInternal, Err: err, User: user}
	}

	sessionID, err := store.Create(ctx, user.UserID, csrf, refresh.TokenID)
	if err != nil {
		return LoginResult{Failure: createFailure(err), Err: err, User: user}
	}

	return LoginResult{
		User:      user,
		Access:    access,
		Refresh:   refresh,
		SessionID: sessionID,
		CSRFToken: csrf,
	}
}
