// Command tokenguard-server runs a small HTTP API in front of tokenguard.Engine.
//
// Endpoints:
//
//	POST /login       form login=...&password=... (rate limited per login)
//	POST /refresh     form refresh_token=... or the refresh_token cookie
//	POST /logout      guarded; ends the calling session
//	POST /logout/all  guarded; ends every session of the caller
//	GET  /me          guarded; identity and live sessions
//	GET  /health      backing store reachability
//	GET  /metrics     Prometheus text exposition
//
// Run against an embedded store with throwaway keys:
//
//	go run ./cmd/tokenguard-server -memory
//
// Then:
//
//	curl -i -c jar.txt -X POST localhost:8080/login -d login=alice -d password=correct-horse
//	curl -i localhost:8080/me -H "Authorization: Bearer <ACCESS_TOKEN>"
//	curl -i -b jar.txt -c jar.txt -X POST localhost:8080/refresh
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/internal/redisx"
	"github.com/MrEthical07/tokenguard/jwt"
	tgotel "github.com/MrEthical07/tokenguard/metrics/export/otel"
)

func main() {
	var (
		envFile = flag.String("env", ".env", "dotenv file loaded before the environment")
		memory  = flag.Bool("memory", false, "use an embedded redis and generated keys")
	)
	flag.Parse()

	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *memory {
		cleanup, err := setupMemory()
		if err != nil {
			boot.Fatal().Err(err).Msg("memory mode setup failed")
		}
		defer cleanup()
	}

	cfg, err := tokenguard.LoadConfig(*envFile)
	if err != nil {
		boot.Fatal().Err(err).Msg("config")
	}
	logger := tokenguard.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	rdb, err := redisx.Connect(connectCtx, cfg.Redis.Client())
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Client().Addr()).Msg("redis connect")
	}
	defer rdb.Close()

	engine, err := tokenguard.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("engine build")
	}

	// No-op unless the host process installs a global MeterProvider.
	otelExporter, err := tgotel.NewOTelExporter(otel.Meter("tokenguard"), engine)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel exporter")
	}
	defer otelExporter.Close()

	users := newDemoUsers()
	users.put("alice", "u-alice", "correct-horse", "admin")
	users.put("bob", "u-bob", "battery-staple", "member")

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           routes(engine, users, rdb),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", srv.Addr).Str("alg", cfg.JWT.Algorithm).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("serve")
	}
	logger.Info().Msg("stopped")
}

// setupMemory starts miniredis and writes a fresh key pair, exporting both through the
// environment so LoadConfig picks them up.
func setupMemory() (func(), error) {
	mr, err := miniredis.Run()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "tokenguard-keys-")
	if err != nil {
		mr.Close()
		return nil, err
	}
	cleanup := func() {
		mr.Close()
		_ = os.RemoveAll(dir)
	}

	priv, pub, err := jwt.GenerateKeyPairPEM(jwt.RS256)
	if err != nil {
		cleanup()
		return nil, err
	}
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	if err := os.WriteFile(privPath, priv, 0o600); err != nil {
		cleanup()
		return nil, err
	}
	if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
		cleanup()
		return nil, err
	}

	env := map[string]string{
		"REDIS_CLIENT_HOST":    mr.Host(),
		"REDIS_CLIENT_PORT":    mr.Port(),
		"JWT_PRIVATE_KEY_PATH": privPath,
		"JWT_PUBLIC_KEY_PATH":  pubPath,
		"JWT_ALGO":             string(jwt.RS256),
		"LOG_FORMAT":           "console",
	}
	for k, v := range env {
		if err := os.Setenv(k, v); err != nil {
			cleanup()
			return nil, err
		}
	}
	return cleanup, nil
}

func refreshMaxAge(t time.Time) int {
	secs := int(time.Until(t).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
