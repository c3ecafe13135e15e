// Package rate implements the Redis-backed login attempt limiter consulted before any
// credential check.
//
// # Window semantics
//
// Fixed window with a separate block: the first failure starts a counter that expires after
// Window; the attempt that pushes the count past Points sets a block key that lives for Block,
// independent of the window. While the block key exists every Consume is rejected with a
// [*BlockedError] carrying the remaining block time.
//
// Key prefixes (default "login_fail"):
//   - <prefix>:<id>       attempt counter
//   - <prefix>:block:<id> block marker
//
// # What this package must NOT do
//
//   - Decide fail-open vs fail-closed; backend failures surface as [ErrUnavailable].
//   - Be imported outside the tokenguard module.
package rate
