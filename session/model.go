package session

// Record is the server-side state bound to one login session.
type Record struct {
	SchemaVersion uint8

	// SessionID is the store key. It is not part of the encoded payload.
	SessionID string

	UserID         string
	CSRFToken      string
	RefreshTokenID string

	IssuedAt  int64
	ExpiresAt int64
}

// Expired reports whether the record's embedded expiry is at or before now (unix seconds).
func (r *Record) Expired(now int64) bool {
	return r == nil || r.ExpiresAt <= now
}
