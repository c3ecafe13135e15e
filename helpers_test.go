package tokenguard

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/tokenguard/jwt"
)

type pemPair struct {
	priv, pub []byte
	err       error
}

var (
	pemMu    sync.Mutex
	pemCache = map[jwt.Algorithm]pemPair{}
)

func testPEM(tb testing.TB, alg jwt.Algorithm) ([]byte, []byte) {
	tb.Helper()
	pemMu.Lock()
	defer pemMu.Unlock()

	p, ok := pemCache[alg]
	if !ok {
		p.priv, p.pub, p.err = jwt.GenerateKeyPairPEM(alg)
		pemCache[alg] = p
	}
	if p.err != nil {
		tb.Fatalf("generate %s key pair: %v", alg, p.err)
	}
	return p.priv, p.pub
}

func testConfig(tb testing.TB) Config {
	tb.Helper()
	priv, pub := testPEM(tb, jwt.RS256)

	cfg := DefaultConfig()
	cfg.JWT.PrivateKeyPEM = priv
	cfg.JWT.PublicKeyPEM = pub
	cfg.JWT.Issuer = "https://auth.test"
	cfg.JWT.Audience = "api"
	cfg.Metrics.Enabled = true
	cfg.Metrics.LatencyHistograms = true
	return cfg
}

func newTestRedis(tb testing.TB) (*miniredis.Miniredis, *redis.Client) {
	tb.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		tb.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func newTestEngine(tb testing.TB, mutate func(*Config)) (*Engine, *miniredis.Miniredis, *redis.Client) {
	tb.Helper()
	cfg := testConfig(tb)
	if mutate != nil {
		mutate(&cfg)
	}
	mr, rdb := newTestRedis(tb)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(zerolog.Nop()).
		Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}
	return engine, mr, rdb
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
