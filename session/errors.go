package session

import "errors"

var (
	// ErrUnavailable reports an unreachable store, a failed command, or a cancelled context.
	ErrUnavailable = errors.New("session store unavailable")
	// ErrNotFound is returned when a session record does not exist or has expired.
	ErrNotFound = errors.New("session not found")
	// ErrNotMember is returned by Registry.Remove when the id was not in the user's set.
	ErrNotMember = errors.New("session not a member")
	// ErrAlreadyUsed is returned by Store.MarkUsed on the second consumption of a refresh token.
	ErrAlreadyUsed = errors.New("session refresh already used")
	// ErrInvalidKey is returned for empty user or session identifiers.
	ErrInvalidKey = errors.New("invalid session key")
)

// ErrRefreshHashMismatch is returned when the presented refresh token is not the one recorded.
var ErrRefreshHashMismatch = errors.New("refresh hash mismatch")
