package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CurrentVersion is stamped into every issued token. Bump it when the claim layout changes
// so verifiers can reject tokens minted under an older schema.
const CurrentVersion = 1

// TokenClass selects the lifetime applied on issue and the max-age enforced on verify.
type TokenClass uint8

const (
	ClassAccess TokenClass = iota + 1
	ClassRefresh
	ClassAction
)

func (c TokenClass) String() string {
	switch c {
	case ClassAccess:
		return "access"
	case ClassRefresh:
		return "refresh"
	case ClassAction:
		return "action"
	default:
		return "unknown"
	}
}

// Claims is the payload signed into access and refresh tokens.
type Claims struct {
	Roles      []string `json:"roles"`
	Scope      string   `json:"scope,omitempty"`
	DeviceID   string   `json:"device_id,omitempty"`
	DeviceHash string   `json:"device_hash,omitempty"`
	SessionID  string   `json:"session_id,omitempty"`
	Version    int      `json:"version"`
	jwt.RegisteredClaims
}

// ActionClaims binds a one-time token to a specific operation.
type ActionClaims struct {
	Claims
	ActionType string `json:"action_type"`
	ParamsHash string `json:"params_hash"`
}

// IssueOptions overrides the audience and subject registered claims.
// A non-empty Subject wins over Claims.Subject.
type IssueOptions struct {
	Audience string
	Subject  string
}

// VerifyOptions narrows verification beyond the configured defaults.
type VerifyOptions struct {
	Audience string
	Subject  string
}

// ExpiresAtTime returns the expiry as a time.Time, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// HasRole reports whether role is present in the token's role list.
func (c *Claims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
