package session

import "time"

// Session is one login instance. Mastery marks a session created by a primary login; sessions
// derived from a refresh carry Mastery=false. Used marks the refresh token as consumed.
type Session struct {
	SessionID   string `redis:"-"`
	UserID      string `redis:"user_id"`
	DeviceID    string `redis:"device_id"`
	DeviceHash  string `redis:"device_hash"`
	RefreshHash string `redis:"refresh_hash"`
	CreatedAt   int64  `redis:"created_at"`
	ExpiresAt   int64  `redis:"expires_at"`
	Mastery     bool   `redis:"mastery"`
	Used        bool   `redis:"used"`
}

// Expired reports whether the record's absolute lifetime has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.Unix() >= s.ExpiresAt
}

// ExpiresAtTime returns ExpiresAt as a time.Time.
func (s *Session) ExpiresAtTime() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

func (s *Session) fields() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      s.UserID,
		"device_id":    s.DeviceID,
		"device_hash":  s.DeviceHash,
		"refresh_hash": s.RefreshHash,
		"created_at":   s.CreatedAt,
		"expires_at":   s.ExpiresAt,
		"mastery":      boolField(s.Mastery),
		"used":         boolField(s.Used),
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
