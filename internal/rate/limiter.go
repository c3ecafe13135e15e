package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultPoints = 5
	DefaultWindow = 15 * time.Minute
	DefaultBlock  = 15 * time.Minute
	DefaultPrefix = "login_fail"
)

const consumeScript = `
local block_ttl = redis.call("PTTL", KEYS[2])
if block_ttl > 0 then
  return {0, 0, block_ttl}
end

local count = redis.call("INCR", KEYS[1])
if count == 1 or redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end

if count > tonumber(ARGV[1]) then
  redis.call("SET", KEYS[2], "1", "PX", ARGV[3])
  redis.call("DEL", KEYS[1])
  return {0, count, tonumber(ARGV[3])}
end

return {1, count, redis.call("PTTL", KEYS[1])}
`

var consumeLua = redis.NewScript(consumeScript)

// Config holds limiter tuning parameters.
type Config struct {
	Points int
	Window time.Duration
	Block  time.Duration
	Prefix string
}

func (c *Config) applyDefaults() {
	if c.Points <= 0 {
		c.Points = DefaultPoints
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Block <= 0 {
		c.Block = DefaultBlock
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
}

// Result describes an allowed attempt.
type Result struct {
	Count     int
	Remaining int
	ResetIn   time.Duration
}

// State is a read-only view of an identifier's counters.
type State struct {
	Count      int
	Blocked    bool
	RetryAfter time.Duration
}

// Limiter enforces per-identifier login attempt limits using Redis counters.
// It holds no in-process state; every decision is a single atomic script call.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	cfg.applyDefaults()
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Config returns the effective configuration after defaults.
func (l *Limiter) Config() Config { return l.config }

// Consume records one attempt for identifier. It returns a *BlockedError once the count
// exceeds Points, and for the remainder of the block after that.
func (l *Limiter) Consume(ctx context.Context, identifier string) (Result, error) {
	res, err := consumeLua.Run(ctx, l.redis,
		[]string{l.counterKey(identifier), l.blockKey(identifier)},
		l.config.Points,
		l.config.Window.Milliseconds(),
		l.config.Block.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 3 {
		return Result{}, fmt.Errorf("%w: unexpected script reply %v", ErrUnavailable, res)
	}

	allowed, count, ttl := res[0], res[1], time.Duration(res[2])*time.Millisecond
	if allowed == 0 {
		return Result{}, &BlockedError{RetryAfter: ttl}
	}
	return Result{
		Count:     int(count),
		Remaining: l.config.Points - int(count),
		ResetIn:   ttl,
	}, nil
}

// Reset clears both the counter and any active block. Called after a successful login.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, l.counterKey(identifier), l.blockKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Status reads the current counters without consuming an attempt.
func (l *Limiter) Status(ctx context.Context, identifier string) (State, error) {
	var countCmd *redis.StringCmd
	var blockCmd *redis.DurationCmd
	_, err := l.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		countCmd = pipe.Get(ctx, l.counterKey(identifier))
		blockCmd = pipe.PTTL(ctx, l.blockKey(identifier))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return State{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var st State
	if raw, err := countCmd.Result(); err == nil {
		n, _ := strconv.Atoi(raw)
		st.Count = n
	}
	if ttl := blockCmd.Val(); ttl > 0 {
		st.Blocked = true
		st.RetryAfter = ttl
	}
	return st, nil
}

func (l *Limiter) counterKey(identifier string) string {
	return l.config.Prefix + ":" + identifier
}

func (l *Limiter) blockKey(identifier string) string {
	return l.config.Prefix + ":block:" + identifier
}
