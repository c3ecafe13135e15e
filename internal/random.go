package internal

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewSessionID returns a ULID: unique per login and lexically ordered by creation time,
// which keeps SMEMBERS output readable when debugging a user's session set.
func NewSessionID(now time.Time) (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidSessionID reports whether s parses as a strict ULID.
func ValidSessionID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
