// Package stores holds the Redis-backed refresh-token blacklist.
//
// An entry is written with SET NX under "<prefix>:<jti>" and expires with the token
// it blacklists, so the first writer wins when two refreshes race on the same token.
package stores
