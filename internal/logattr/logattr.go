// Package logattr holds the slog attribute helpers shared by the engine, middleware and
// HTTP handlers. Helpers return an empty Attr for zero inputs so callers skip nil checks.
//
// Raw session ids, tokens and CSRF values must never reach a log line; use Session,
// which records a short fingerprint instead.
package logattr

import (
	"log/slog"
	"time"

	"github.com/Fpierr/zikauth/internal"
)

// Error records err under "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component tags a log line with the emitting subsystem.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Reason records a failure classification such as "csrf_mismatch".
func Reason(reason string) slog.Attr {
	if reason == "" {
		return slog.Attr{}
	}
	return slog.String("reason", reason)
}

// Channel records the transport channel ("web" or "mobile").
func Channel(ch string) slog.Attr {
	if ch == "" {
		return slog.Attr{}
	}
	return slog.String("channel", ch)
}

// UserID records the authenticated user id.
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// Session records a fingerprint of a session id.
func Session(sessionID string) slog.Attr {
	if sessionID == "" {
		return slog.Attr{}
	}
	return slog.String("session", internal.Fingerprint(sessionID))
}

// TokenID records a fingerprint of a token jti.
func TokenID(jti string) slog.Attr {
	if jti == "" {
		return slog.Attr{}
	}
	return slog.String("jti", internal.Fingerprint(jti))
}

// Latency records a request or store round-trip duration.
func Latency(d time.Duration) slog.Attr {
	return slog.Duration("latency", d)
}
