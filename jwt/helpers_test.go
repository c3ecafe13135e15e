package jwt

import (
	"sync"
	"testing"
	"time"
)

var (
	pemCacheMu sync.Mutex
	pemCache   = map[Algorithm][2][]byte{}
)

// testPEM caches generated keys per algorithm; RSA generation dominates test time otherwise.
func testPEM(t testing.TB, alg Algorithm) ([]byte, []byte) {
	t.Helper()
	pemCacheMu.Lock()
	defer pemCacheMu.Unlock()
	if kp, ok := pemCache[alg]; ok {
		return kp[0], kp[1]
	}
	priv, pub, err := GenerateKeyPairPEM(alg)
	if err != nil {
		t.Fatalf("generate %s key pair: %v", alg, err)
	}
	pemCache[alg] = [2][]byte{priv, pub}
	return priv, pub
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
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

func testConfig(t testing.TB, alg Algorithm) Config {
	t.Helper()
	priv, pub := testPEM(t, alg)
	return Config{
		Algorithm:     alg,
		PrivateKeyPEM: priv,
		PublicKeyPEM:  pub,
		Issuer:        "https://auth.example.test",
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    10 * 24 * time.Hour,
		ActionTTL:     time.Minute,
	}
}

func newTestManager(t testing.TB, alg Algorithm, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(testConfig(t, alg), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}
