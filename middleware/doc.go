// Package middleware exposes net/http adapters over tokenguard.Engine.
//
// # Guards
//
//   - [Guard] authorizes the Authorization header and attaches the identity.
//   - [RequireRole] narrows a guarded route to callers holding a role.
//   - [LoginLimit] spends one login attempt per request before the handler runs.
//
// Rejections are written as {"success":false,"error":"<code>"} with the status mapped from
// the engine's reason code. Raw verification errors never reach the client.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself; all decisions are delegated to the Engine.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly.
//   - Access Redis.
//   - Let a request through when the Engine reports its backing store unavailable.
package middleware
