// Package internal contains helpers that are private to zikauth: session id,
// CSRF token and jti generation, plus log-safe fingerprints of secrets.
//
// # Sub-packages
//
//   - audit: async event emission (Emitter + Sink implementations)
//   - channel: web/mobile credential extraction
//   - flows: pure-function orchestrators for every Engine operation
//   - logattr: slog attribute helpers
//   - stores: refresh-token revocation list
//   - userdir: YAML-backed user directory used by the command
//   - authtest: engine and request fixtures for HTTP-level tests
//
// # What this package must NOT do
//
//   - Export types that appear in the public zikauth API.
//   - Import the root zikauth package. userdir and authtest are the exceptions:
//     they sit on top of it.
package internal
