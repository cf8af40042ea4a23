package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short, non-reversible label for a secret value so that
// logs and audit events can correlate session ids without storing them.
func Fingerprint(v string) string {
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:6])
}
