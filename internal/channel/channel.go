// Package channel selects the transport channel of a request and pulls the three
// authentication credentials out of it. Extraction has no side effects.
package channel

import (
	"net/http"
	"strings"
)

// Channel is the declared client transport.
type Channel string

const (
	None   Channel = ""
	Web    Channel = "web"
	Mobile Channel = "mobile"
)

// Header and cookie names shared by both channels.
const (
	HeaderClientType    = "X-Client-Type"
	HeaderAuthorization = "Authorization"
	HeaderSessionID     = "X-Session-Id"
	HeaderCSRF          = "X-CSRF-Token"

	CookieAccess  = "access_token"
	CookieRefresh = "refresh_token"
	CookieSession = "session_id"
	CookieCSRF    = "csrf_token"

	bearerPrefix = "Bearer "
)

// FailureKind classifies why extraction did not yield credentials.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureNoChannel means the request did not declare a known client type.
	FailureNoChannel
	// FailureMixed means credentials for the other channel were present.
	FailureMixed
	// FailureMissing means at least one of the three credentials is empty.
	FailureMissing
)

// Credentials are the raw values presented by the client.
type Credentials struct {
	Channel     Channel
	AccessToken string
	SessionID   string
	CSRFToken   string
}

// Select returns the declared channel. Unknown or absent values yield None.
func Select(r *http.Request) Channel {
	switch Channel(r.Header.Get(HeaderClientType)) {
	case Web:
		return Web
	case Mobile:
		return Mobile
	default:
		return None
	}
}

// Extract reads credentials from the transport matching the declared channel.
func Extract(r *http.Request) (Credentials, FailureKind) {
	ch := Select(r)
	switch ch {
	case Web:
		return extractWeb(r)
	case Mobile:
		return extractMobile(r)
	default:
		return Credentials{}, FailureNoChannel
	}
}

func extractWeb(r *http.Request) (Credentials, FailureKind) {
	if _, ok := r.Header[HeaderAuthorization]; ok {
		return Credentials{Channel: Web}, FailureMixed
	}

	c := Credentials{
		Channel:     Web,
		AccessToken: CookieValue(r, CookieAccess),
		SessionID:   CookieValue(r, CookieSession),
		CSRFToken:   r.Header.Get(HeaderCSRF),
	}
	if !c.complete() {
		return c, FailureMissing
	}
	return c, FailureNone
}

func extractMobile(r *http.Request) (Credentials, FailureKind) {
	if CookieValue(r, CookieAccess) != "" || CookieValue(r, CookieSession) != "" {
		return Credentials{Channel: Mobile}, FailureMixed
	}

	c := Credentials{
		Channel:     Mobile,
		AccessToken: BearerToken(r),
		SessionID:   r.Header.Get(HeaderSessionID),
		CSRFToken:   r.Header.Get(HeaderCSRF),
	}
	if !c.complete() {
		return c, FailureMissing
	}
	return c, FailureNone
}

func (c Credentials) complete() bool {
	return c.AccessToken != "" && c.SessionID != "" && c.CSRFToken != ""
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get(HeaderAuthorization)
	if !strings.HasPrefix(h, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(bearerPrefix):])
}

// CookieValue returns the named cookie's value, or "" when absent.
func CookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
