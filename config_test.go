package tokenguard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/tokenguard/jwt"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with keys",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "missing private key",
			mutate: func(c *Config) {
				c.JWT.PrivateKeyPEM = nil
			},
			wantValid: false,
		},
		{
			name: "missing public key",
			mutate: func(c *Config) {
				c.JWT.PublicKeyPEM = nil
			},
			wantValid: false,
		},
		{
			name: "key paths instead of pem",
			mutate: func(c *Config) {
				c.JWT.PrivateKeyPEM, c.JWT.PublicKeyPEM = nil, nil
				c.JWT.PrivateKeyPath, c.JWT.PublicKeyPath = "priv.pem", "pub.pem"
			},
			wantValid: true,
		},
		{
			name: "hmac rejected",
			mutate: func(c *Config) {
				c.JWT.Algorithm = "HS256"
			},
			wantValid: false,
		},
		{
			name: "zero access ttl",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 0
			},
			wantValid: false,
		},
		{
			name: "access longer than refresh",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = Duration(48 * time.Hour)
				c.JWT.RefreshTTL = Duration(24 * time.Hour)
			},
			wantValid: false,
		},
		{
			name: "action longer than access",
			mutate: func(c *Config) {
				c.JWT.ActionTTL = Duration(10 * time.Minute)
			},
			wantValid: false,
		},
		{
			name: "leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = Duration(30 * time.Second)
			},
			wantValid: true,
		},
		{
			name: "leeway too large",
			mutate: func(c *Config) {
				c.JWT.Leeway = Duration(3 * time.Minute)
			},
			wantValid: false,
		},
		{
			name: "zero login points",
			mutate: func(c *Config) {
				c.LoginLimit.Points = 0
			},
			wantValid: false,
		},
		{
			name: "bad log format",
			mutate: func(c *Config) {
				c.Log.Format = "xml"
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	cases := map[string]time.Duration{
		"5m":  5 * time.Minute,
		"10d": 240 * time.Hour,
		"1m":  time.Minute,
		"90s": 90 * time.Second,
		"0s":  0,
		"":    0,
	}
	for in, want := range cases {
		var d Duration
		require.NoError(t, d.UnmarshalText([]byte(in)), in)
		require.Equal(t, want, d.Std(), in)
	}

	var d Duration
	require.Error(t, d.UnmarshalText([]byte("soon")))
}

func setRequiredEnv(t *testing.T) (string, string) {
	t.Helper()
	priv, pub := testPEM(t, jwt.RS256)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o644))

	t.Setenv("JWT_PRIVATE_KEY_PATH", privPath)
	t.Setenv("JWT_PUBLIC_KEY_PATH", pubPath)
	t.Setenv("REDIS_CLIENT_HOST", "127.0.0.1")
	return privPath, pubPath
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, "RS256", cfg.JWT.Algorithm)
	require.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL.Std())
	require.Equal(t, 10*24*time.Hour, cfg.JWT.RefreshTTL.Std())
	require.Equal(t, time.Minute, cfg.JWT.ActionTTL.Std())
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, 5, cfg.LoginLimit.Points)
	require.Equal(t, 15*time.Minute, cfg.LoginLimit.Window.Std())
	require.Equal(t, 15*time.Minute, cfg.LoginLimit.Block.Std())
	require.False(t, cfg.Session.BindDevice)
	require.Equal(t, ":8080", cfg.HTTPAddr)

	tc, err := cfg.TokenConfig()
	require.NoError(t, err)
	require.Equal(t, jwt.RS256, tc.Algorithm)
	require.NotEmpty(t, tc.PrivateKeyPEM)
	require.NotEmpty(t, tc.PublicKeyPEM)
}

func TestLoadConfigOverridesAndDotenv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "2m")
	t.Setenv("JWT_ISSUER_URLS", "https://issuer.example")
	// registered so the value loaded from the dotenv file is removed afterwards
	t.Setenv("LOGIN_LIMIT_POINTS", "")
	os.Unsetenv("LOGIN_LIMIT_POINTS")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOGIN_LIMIT_POINTS=3\nJWT_ACCESS_TOKEN_TTL=9m\n"), 0o600))

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, cfg.JWT.AccessTTL.Std(), "process env wins over dotenv")
	require.Equal(t, "https://issuer.example", cfg.JWT.Issuer)
	require.Equal(t, 3, cfg.LoginLimit.Points)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_CLIENT_HOST", "")
	os.Unsetenv("REDIS_CLIENT_HOST")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoadConfigBadTTL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_REFRESH_TOKEN_TTL", "forever")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTokenConfigMissingFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKeyPath = filepath.Join(t.TempDir(), "nope.pem")
	cfg.JWT.PublicKeyPath = filepath.Join(t.TempDir(), "nope.pub")

	_, err := cfg.TokenConfig()
	require.ErrorIs(t, err, jwt.ErrSigning)
}

func TestBuildRequiresRedis(t *testing.T) {
	_, err := New().WithConfig(testConfig(t)).Build()
	require.Error(t, err)
}

func TestBuildRejectsMismatchedKeys(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig(t)
	_, otherPub := testPEM(t, jwt.ES256)
	cfg.JWT.PublicKeyPEM = otherPub

	_, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	require.ErrorIs(t, err, jwt.ErrSigning)
}

func TestBuilderSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	b := New().WithConfig(testConfig(t)).WithRedis(rdb)
	_, err := b.Build()
	require.NoError(t, err)
	_, err = b.Build()
	require.Error(t, err)
}
