package tokenguard

import (
	"time"

	"github.com/MrEthical07/tokenguard/jwt"
)

// Identity is the authenticated caller attached to a request by Authorize.
type Identity struct {
	UserID    string
	SessionID string
	Roles     []string
	Scope     string
	DeviceID  string
	ExpiresAt time.Time
	Claims    *jwt.Claims
}

// HasRole reports whether the identity carries role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SessionRequest describes a freshly verified login. The caller is responsible for having
// checked credentials before calling IssueSession.
type SessionRequest struct {
	UserID     string
	Roles      []string
	Scope      string
	DeviceID   string
	DeviceHash string
	// Audience overrides the configured audience for both tokens.
	Audience string
}

// SessionTokens is the result of IssueSession and Refresh.
type SessionTokens struct {
	SessionID        string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// SessionInfo describes one logged-in session of a user.
type SessionInfo struct {
	SessionID string
	DeviceID  string
	CreatedAt time.Time
	ExpiresAt time.Time
	Mastery   bool
}
