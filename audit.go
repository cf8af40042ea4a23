package zikauth

import (
	"io"
	"log/slog"

	"github.com/Fpierr/zikauth/internal/audit"
)

// AuditEvent is one security-relevant occurrence emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's audit delivery goroutine.
type AuditSink = audit.Sink

// Built-in sinks.
type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	SlogSink       = audit.SlogSink
	MultiSink      = audit.MultiSink
)

// NewChannelSink returns a sink that buffers events in a channel, mostly for tests.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per event to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewSlogSink logs events through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return audit.NewSlogSink(logger)
}

// Audit event types.
const (
	AuditEventLoginSuccess         = "login_success"
	AuditEventLoginFailure         = "login_failure"
	AuditEventAuthFailure          = "auth_failure"
	AuditEventRefreshSuccess       = "refresh_success"
	AuditEventRefreshFailure       = "refresh_failure"
	AuditEventRefreshReuseDetected = "refresh_reuse_detected"
	AuditEventLogout               = "logout"
)
