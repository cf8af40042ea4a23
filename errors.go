package zikauth

import "errors"

// Authentication failures. Each maps to HTTP 401 with one generic body.
var (
	// ErrMixedChannel is returned when a request carries credentials of the other channel.
	ErrMixedChannel = errors.New("mixed authentication channel")
	// ErrMissingCredentials is returned when the access token, session id or CSRF token is absent.
	ErrMissingCredentials = errors.New("missing authentication credentials")
	// ErrInvalidToken is returned for any token verification failure, including an unknown or inactive subject.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidSession is returned when the session record is unknown, expired or unreadable.
	ErrInvalidSession = errors.New("invalid or expired session")
	// ErrSessionUserMismatch is returned when the session belongs to a different user than the token.
	ErrSessionUserMismatch = errors.New("session user mismatch")
	// ErrCSRFMismatch is returned when the presented CSRF token does not match the session.
	ErrCSRFMismatch = errors.New("csrf token mismatch")
	// ErrRefreshReuse is returned when a refresh token is rotated out, revoked or bound to another session.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrInvalidCredentials is returned by Login for any identifier/password failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ErrNoChannel means the request declared no known client type. It is not a failure:
// callers continue anonymously.
var ErrNoChannel = errors.New("no authentication channel")

// Infrastructure failures. These map to HTTP 503 and never downgrade to anonymous.
var (
	ErrSessionBackendUnavailable = errors.New("session backend unavailable")
	ErrUserProviderUnavailable   = errors.New("user provider unavailable")
)

var (
	// ErrUserNotFound is returned by a UserProvider for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when a nil or unbuilt Engine is used.
	ErrEngineNotReady = errors.New("engine not initialized")
)

var authFailures = []struct {
	err    error
	reason string
}{
	{ErrMixedChannel, "mixed_channel"},
	{ErrMissingCredentials, "missing_credentials"},
	{ErrInvalidToken, "invalid_token"},
	{ErrInvalidSession, "invalid_session"},
	{ErrSessionUserMismatch, "session_user_mismatch"},
	{ErrCSRFMismatch, "csrf_mismatch"},
	{ErrRefreshReuse, "refresh_reuse"},
	{ErrInvalidCredentials, "invalid_credentials"},
}

// IsAuthFailure reports whether err is one of the authentication failures above.
func IsAuthFailure(err error) bool {
	return FailureReason(err) != ""
}

// IsUnavailable reports whether err is an infrastructure failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrSessionBackendUnavailable) || errors.Is(err, ErrUserProviderUnavailable)
}

// FailureReason returns a stable snake_case label for an authentication failure, or ""
// when err is not one.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	for _, f := range authFailures {
		if errors.Is(err, f.err) {
			return f.reason
		}
	}
	return ""
}
