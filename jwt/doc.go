// Package jwt issues and verifies signed session tokens using an asymmetric key pair
// loaded once at startup.
//
// # Token classes
//
// Three classes share one key pair and differ only in lifetime:
//   - [ClassAccess]: short-lived bearer credential bound to a session id.
//   - [ClassRefresh]: long-lived credential exchanged for a new session.
//   - [ClassAction]: single-purpose token bound to an action type and parameter hash.
//
// # Verification
//
// [Manager.Verify] pins the configured algorithm (never the one named in the token header),
// checks the issuer, expiry, and a max-age derived from the class TTL, and reports every
// failure as a [*VerifyError] carrying one of four [ErrorKind] values.
//
// # What this package must NOT do
//
//   - Touch Redis or any session state (the root package composes that).
//   - Accept HMAC algorithms; the verifier key must be public.
package jwt
