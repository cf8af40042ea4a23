// Package flows contains the orchestrators behind every Engine operation:
// authenticate, login, refresh and logout.
//
// Each Run function takes a dependency struct of funcs and small store interfaces and
// returns a result carrying a FailureKind. The root package maps kinds to its public
// sentinel errors, records metrics and emits audit events; flows do neither.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root zikauth package.
//   - Log raw session ids or tokens.
package flows
