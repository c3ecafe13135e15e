package middleware

import (
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/jwt"
)

var (
	keyOnce         sync.Once
	keyPriv, keyPub []byte
	keyErr          error
)

func newTestEngine(t *testing.T, mutate func(*tokenguard.Config)) (*tokenguard.Engine, *miniredis.Miniredis) {
	t.Helper()
	keyOnce.Do(func() { keyPriv, keyPub, keyErr = jwt.GenerateKeyPairPEM(jwt.RS256) })
	if keyErr != nil {
		t.Fatalf("generate keys: %v", keyErr)
	}

	cfg := tokenguard.DefaultConfig()
	cfg.JWT.PrivateKeyPEM = keyPriv
	cfg.JWT.PublicKeyPEM = keyPub
	if mutate != nil {
		mutate(&cfg)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := tokenguard.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(zerolog.Nop()).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine, mr
}
