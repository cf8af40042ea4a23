// Package zikauth authenticates HTTP requests arriving over two channels: browsers
// (web) carry credentials in cookies, native apps (mobile) in headers. Both present a
// JWT access token, an opaque session id and a CSRF token; the session id names an
// encrypted record in Redis that binds the user, the CSRF token and the current
// refresh token.
//
// Build an [Engine] once at startup with [New] and [Builder.Build]; all Engine methods
// are safe for concurrent use.
//
// # Channels
//
// X-Client-Type selects the channel and must be exactly "web" or "mobile". Without it
// the request is anonymous ([ErrNoChannel]). A web request that also sends an
// Authorization header, or a mobile request that also sends the access_token or
// session_id cookie, is rejected with [ErrMixedChannel].
//
// # Errors
//
// Authentication failures ([IsAuthFailure]) map to HTTP 401 with a single generic body.
// Backend failures ([IsUnavailable]) map to 503 and are never downgraded to anonymous.
//
// # Architecture boundaries
//
// zikauth is the public surface. Flow orchestration, credential extraction, the
// refresh blacklist and audit dispatch live under internal/ and do not import this
// package; flows report a failure kind that the engine maps to the sentinels here.
// HTTP routing lives in httpapi and middleware.
package zikauth
