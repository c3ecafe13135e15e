package rate

import (
	"errors"
	"strconv"
	"time"
)

var (
	// ErrBlocked is the sentinel matched by every *BlockedError.
	ErrBlocked = errors.New("login attempts blocked")
	// ErrUnavailable reports an unreachable or failing backing store.
	ErrUnavailable = errors.New("limiter backend unavailable")
)

// BlockedError carries the time until the identifier may try again.
type BlockedError struct {
	RetryAfter time.Duration
}

func (e *BlockedError) Error() string {
	return ErrBlocked.Error() + ": retry after " + e.RetryAfter.String()
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// RetryAfterSeconds rounds RetryAfter up to whole seconds for a Retry-After header.
func (e *BlockedError) RetryAfterSeconds() string {
	secs := int64((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
