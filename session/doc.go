// Package session provides the Redis-backed session registry and session record store.
//
// # Registry
//
// [Registry] keeps one set per user identity, keyed user:<id>:sessions, holding the ids of
// sessions that are currently logged in. Membership is the sole source of truth for "is this
// session still valid": removing an id revokes every access token carrying it, whatever the
// token's own expiry. Every guard instance reads the same set, so a revocation is visible to
// any check that starts after the SREM returns.
//
// Each set carries a TTL refreshed on every Add (the refresh-token lifetime), so ids left behind
// by a skipped logout age out instead of accumulating.
//
// # Records
//
// [Store] keeps one hash per session (session:<sid>) with the device binding, the SHA-256 of the
// current refresh token, and the used flag that makes refresh tokens single-use.
//
// # What this package must NOT do
//
//   - Import tokenguard or jwt (no upward imports).
//   - Store raw refresh tokens.
//   - Make authorization decisions; it only answers membership questions.
package session
