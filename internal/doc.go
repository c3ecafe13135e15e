// Package internal contains helper utilities that are intentionally private to tokenguard:
// identifier generation and the hashing used to bind refresh and action tokens.
//
// # Sub-packages
//
//   - duration: TTL string parsing ("5m", "10d", "1w")
//   - rate: Redis-backed login attempt limiter
//   - redisx: backing-store client construction
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenguard API.
//   - Be imported by any package outside the tokenguard module.
package internal
