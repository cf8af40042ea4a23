// Package session provides the encrypted, Redis-backed session record store used by
// the web and mobile authentication channels.
//
// # Record encoding
//
// A [Record] is encoded in a compact binary layout whose first byte is the schema
// version. New versions append fields and never reinterpret old ones, so a reader can
// always decode records written by an older process.
//
// # Encryption
//
// Encoded records are sealed with AES-256-GCM by a [Keyring] before they reach Redis.
// The session id is bound as associated data, so a blob copied under a different key
// fails authentication. The keyring holds one primary key (used to seal) and any
// number of retired keys (used only to open), which allows key rotation without
// logging every user out.
//
// # Absent vs. unavailable
//
// [Store.Get] reports unknown, expired, malformed and tampered sessions uniformly as
// [ErrSessionNotFound]. A Redis failure is reported as [ErrStoreUnavailable] so the
// caller can fail closed with a server error instead of a 401.
//
// # What this package must NOT do
//
//   - Import zikauth, jwt, or middleware (no upward imports).
//   - Interpret tokens or decide whether a request is authenticated.
//   - Store plaintext record fields in Redis.
package session
