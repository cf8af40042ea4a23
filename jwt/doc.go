// Package jwt mints and verifies the signed access and refresh tokens. Access tokens are
// never stored server-side; refresh tokens carry a jti that a session record pins and that
// the revocation list keys on.
package jwt
