// Package audit delivers authentication audit events off the request path.
//
// The engine hands an [Emitter] a [Record] per auditable outcome. The emitter stamps
// the time, fingerprints the session id and queues the [Event] for a single delivery
// goroutine. With DropIfFull a full queue drops and counts records instead of
// blocking. Sinks: channel, JSON lines writer, slog, fan-out, no-op.
package audit
