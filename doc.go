// Package tokenguard issues, verifies and revokes session tokens backed by Redis.
//
// An [Engine] mints asymmetric-key access, refresh and action tokens, records each login in a
// per-user session set, and authorizes requests by checking both the token and that set. It
// also throttles failed logins per identifier. Engine methods are safe to call from multiple
// goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tokenguard is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (Identity, SessionTokens, MetricsSnapshot). Token handling lives in the jwt package, session
// state in the session package, and the login limiter under internal/.
//
// # What this package must NOT do
//
//   - Check credentials or store passwords. Callers verify identity before IssueSession.
//   - Treat an unreachable registry as a valid session. Authorize fails closed.
//   - Return raw verification errors to clients. Only [Reason] codes leave the boundary.
//
// # Performance contract
//
// Authorize is the hot path: one signature check and one SISMEMBER per call. IssueSession and
// Refresh are allowed a handful of round-trips.
package tokenguard
