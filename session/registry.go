package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetClient is the subset of go-redis the registry needs. *redis.Client, *redis.ClusterClient
// and redis.UniversalClient all satisfy it.
type SetClient interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// Registry records which session ids are currently valid for each user.
type Registry struct {
	redis    SetClient
	entryTTL time.Duration
}

// NewRegistry creates a [Registry]. entryTTL is applied to a user's set on every Add; zero
// disables set expiry.
func NewRegistry(client SetClient, entryTTL time.Duration) *Registry {
	return &Registry{redis: client, entryTTL: entryTTL}
}

// Key returns the set name for userID.
func Key(userID string) string {
	return "user:" + userID + ":sessions"
}

// Add marks sessionID as logged in for userID and refreshes the set TTL.
func (r *Registry) Add(ctx context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return ErrInvalidKey
	}
	key := Key(userID)
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, sessionID)
		if r.entryTTL > 0 {
			pipe.PExpire(ctx, key, r.entryTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsMember reports whether sessionID is currently valid for userID. A false result with a nil
// error is an authoritative "revoked"; any store failure is returned as ErrUnavailable and must
// never be read as membership.
func (r *Registry) IsMember(ctx context.Context, userID, sessionID string) (bool, error) {
	if userID == "" || sessionID == "" {
		return false, ErrInvalidKey
	}
	ok, err := r.redis.SIsMember(ctx, Key(userID), sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ok, nil
}

// Remove revokes sessionID. Removing an id that is not a member returns ErrNotMember and
// changes nothing.
func (r *Registry) Remove(ctx context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return ErrInvalidKey
	}
	n, err := r.redis.SRem(ctx, Key(userID), sessionID).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return ErrNotMember
	}
	return nil
}

// RemoveAll revokes every session of userID and returns the ids that were removed.
func (r *Registry) RemoveAll(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrInvalidKey
	}
	key := Key(userID)
	var members *redis.StringSliceCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members = pipe.SMembers(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return members.Val(), nil
}

// Members lists the session ids currently valid for userID.
func (r *Registry) Members(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrInvalidKey
	}
	ids, err := r.redis.SMembers(ctx, Key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ids, nil
}

// LivenessFunc reports, for each id, whether its backing record still exists.
type LivenessFunc func(ctx context.Context, sessionIDs []string) ([]bool, error)

// Prune removes members whose records have expired and returns how many were dropped.
func (r *Registry) Prune(ctx context.Context, userID string, alive LivenessFunc) (int, error) {
	ids, err := r.Members(ctx, userID)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	live, err := alive(ctx, ids)
	if err != nil {
		return 0, err
	}

	stale := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		if i < len(live) && !live[i] {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	n, err := r.redis.SRem(ctx, Key(userID), stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}
