// Package middleware adapts zikauth.Engine to net/http.
//
// # Handlers
//
//   - [Authenticate] resolves the caller on every request and stores the result in
//     the request context. Requests that carry no client channel pass through
//     anonymously.
//   - [AuthenticateForRefresh] does the same under the engine's refresh access policy.
//   - [RequireAuthenticated] and [RequireRole] gate routes on the stored result.
//
// Authentication failures are answered with 401 and one generic body so a client
// cannot tell which check failed. Session backend failures are answered with 503.
//
// This package never parses tokens or talks to Redis itself; every decision other
// than role membership is made by the engine.
package middleware
