package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	markStatusNotFound int64 = 0
	markStatusUsed     int64 = 1
	markStatusMarked   int64 = 2
	markStatusMismatch int64 = 3
)

// Check-and-set of the used flag. The hash comparison happens before the flag flips so a
// wrong token cannot burn a session it does not own.
const markUsedScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "refresh_hash") ~= ARGV[1] then
  return 3
end
if redis.call("HGET", KEYS[1], "used") == "1" then
  return 1
end
redis.call("HSET", KEYS[1], "used", "1")
return 2
`

// Reverts a mark made by the same refresh token. Records that were never marked, or that
// now hold a different hash, are left alone.
const unmarkUsedScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "refresh_hash") ~= ARGV[1] then
  return 3
end
if redis.call("HGET", KEYS[1], "used") ~= "1" then
  return 2
end
redis.call("HSET", KEYS[1], "used", "0")
return 1
`

var (
	markUsedLua   = redis.NewScript(markUsedScript)
	unmarkUsedLua = redis.NewScript(unmarkUsedScript)
)

// Store is a Redis-backed session record store. Records expire with the refresh-token TTL.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store]. prefix sets the key namespace (default "session").
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "session"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Save writes sess, replacing any previous record with the same id, and sets its TTL.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.SessionID == "" || sess.UserID == "" {
		return ErrInvalidKey
	}
	key := s.key(sess.SessionID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, sess.fields())
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get loads a record. Missing or expired records return ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidKey
	}
	cmd := s.redis.HGetAll(ctx, s.key(sessionID))
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(cmd.Val()) == 0 {
		return nil, ErrNotFound
	}

	var sess Session
	if err := cmd.Scan(&sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	sess.SessionID = sessionID
	return &sess, nil
}

// MarkUsed atomically consumes the refresh token bound to sessionID. It returns
// ErrAlreadyUsed on any second call, ErrRefreshHashMismatch when refreshHash does not match
// the record, and ErrNotFound when the record is gone.
func (s *Store) MarkUsed(ctx context.Context, sessionID, refreshHash string) error {
	if sessionID == "" {
		return ErrInvalidKey
	}
	status, err := markUsedLua.Run(ctx, s.redis, []string{s.key(sessionID)}, refreshHash).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch status {
	case markStatusMarked:
		return nil
	case markStatusUsed:
		return ErrAlreadyUsed
	case markStatusMismatch:
		return ErrRefreshHashMismatch
	case markStatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: unexpected mark status %d", ErrUnavailable, status)
	}
}

// UnmarkUsed gives a consumed refresh token back after the rotation that consumed it failed.
// Unmarking a record that is not marked is a no-op.
func (s *Store) UnmarkUsed(ctx context.Context, sessionID, refreshHash string) error {
	if sessionID == "" {
		return ErrInvalidKey
	}
	status, err := unmarkUsedLua.Run(ctx, s.redis, []string{s.key(sessionID)}, refreshHash).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch status {
	case 1, 2:
		return nil
	case markStatusMismatch:
		return ErrRefreshHashMismatch
	case markStatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: unexpected unmark status %d", ErrUnavailable, status)
	}
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, sessionIDs ...string) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	keys := make([]string, len(sessionIDs))
	for i, id := range sessionIDs {
		keys[i] = s.key(id)
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Alive reports, per id, whether a record still exists. It satisfies [LivenessFunc].
func (s *Store) Alive(ctx context.Context, sessionIDs []string) ([]bool, error) {
	cmds := make([]*redis.IntCmd, len(sessionIDs))
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range sessionIDs {
			cmds[i] = pipe.Exists(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	out := make([]bool, len(cmds))
	for i, cmd := range cmds {
		out[i] = cmd.Val() == 1
	}
	return out, nil
}
