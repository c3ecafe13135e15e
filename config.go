package tokenguard

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/MrEthical07/tokenguard/internal/duration"
	"github.com/MrEthical07/tokenguard/internal/redisx"
	"github.com/MrEthical07/tokenguard/jwt"
)

// Config is the full process configuration. It is read once at startup and treated as
// immutable afterwards.
type Config struct {
	JWT        JWTConfig        `envPrefix:"JWT_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	LoginLimit LoginLimitConfig `envPrefix:"LOGIN_LIMIT_"`
	Session    SessionConfig    `envPrefix:"SESSION_"`
	Log        LogConfig        `envPrefix:"LOG_"`
	Metrics    MetricsConfig    `envPrefix:"METRICS_"`
	HTTPAddr   string           `env:"HTTP_ADDR" envDefault:":8080"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig selects the key pair, algorithm, issuer and per-class lifetimes.
//
// PrivateKeyPEM and PublicKeyPEM take precedence over the path fields when set, which is how
// tests inject fixtures without touching the filesystem.
type JWTConfig struct {
	PrivateKeyPath string   `env:"PRIVATE_KEY_PATH,required"`
	PublicKeyPath  string   `env:"PUBLIC_KEY_PATH,required"`
	Algorithm      string   `env:"ALGO" envDefault:"RS256"`
	Issuer         string   `env:"ISSUER_URLS"`
	Audience       string   `env:"AUDIENCE"`
	AccessTTL      Duration `env:"ACCESS_TOKEN_TTL" envDefault:"5m"`
	RefreshTTL     Duration `env:"REFRESH_TOKEN_TTL" envDefault:"10d"`
	ActionTTL      Duration `env:"ACTION_TOKEN_TTL" envDefault:"1m"`
	Leeway         Duration `env:"LEEWAY" envDefault:"0s"`

	PrivateKeyPEM []byte `env:"-"`
	PublicKeyPEM  []byte `env:"-"`
}

/*
====================================
REDIS CONFIG
====================================
*/

// RedisConfig is the backing-store connection surface.
type RedisConfig struct {
	Host     string `env:"CLIENT_HOST,required"`
	Port     int    `env:"CLIENT_PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	PoolSize int    `env:"POOL_SIZE" envDefault:"0"`
}

// Client converts r into the redisx connection config.
func (r RedisConfig) Client() redisx.Config {
	return redisx.Config{
		Host:     r.Host,
		Port:     r.Port,
		Password: r.Password,
		DB:       r.DB,
		PoolSize: r.PoolSize,
	}
}

/*
====================================
LOGIN LIMIT CONFIG
====================================
*/

// LoginLimitConfig tunes the per-identifier login attempt limiter.
type LoginLimitConfig struct {
	Points int      `env:"POINTS" envDefault:"5"`
	Window Duration `env:"WINDOW" envDefault:"15m"`
	Block  Duration `env:"BLOCK" envDefault:"15m"`
	Prefix string   `env:"PREFIX" envDefault:"login_fail"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session record storage and device binding.
type SessionConfig struct {
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"session"`
	// BindDevice rejects access tokens whose device hash differs from the one attached to the
	// request context with WithDeviceHash.
	BindDevice bool `env:"BIND_DEVICE" envDefault:"false"`
}

// LogConfig selects the log level and output format ("json" or "console").
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// MetricsConfig toggles the in-process counters exposed by Engine.MetricsSnapshot.
type MetricsConfig struct {
	Enabled           bool `env:"ENABLED" envDefault:"true"`
	LatencyHistograms bool `env:"LATENCY_HISTOGRAMS" envDefault:"false"`
}

// Duration is a time.Duration that decodes the compact TTL strings used in the environment
// ("5m", "10d", "1w").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	switch s {
	case "", "0", "0s":
		*d = 0
		return nil
	}
	v, err := duration.Parse(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig returns the configuration used when no environment overrides are present.
// Key material still has to be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Algorithm:  string(jwt.RS256),
			AccessTTL:  Duration(5 * time.Minute),
			RefreshTTL: Duration(10 * 24 * time.Hour),
			ActionTTL:  Duration(time.Minute),
		},
		Redis: RedisConfig{Port: 6379},
		LoginLimit: LoginLimitConfig{
			Points: 5,
			Window: Duration(15 * time.Minute),
			Block:  Duration(15 * time.Minute),
			Prefix: "login_fail",
		},
		Session:  SessionConfig{RedisPrefix: "session"},
		Log:      LogConfig{Level: "info", Format: "json"},
		Metrics:  MetricsConfig{Enabled: true},
		HTTPAddr: ":8080",
	}
}

// LoadConfig reads optional dotenv files (".env" when none are given) and then parses the
// process environment. Variables already set in the environment win over dotenv values.
// The result is validated; any error is a fatal startup condition.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: load %s: %v", ErrInvalidConfig, f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks key material and range constraints. The Redis host is enforced when loading
// from the environment; a Builder given a client directly does not need one.
func (c *Config) Validate() error {
	j := c.JWT
	if len(j.PrivateKeyPEM) == 0 && j.PrivateKeyPath == "" {
		return fmt.Errorf("%w: JWT_PRIVATE_KEY_PATH is required", ErrInvalidConfig)
	}
	if len(j.PublicKeyPEM) == 0 && j.PublicKeyPath == "" {
		return fmt.Errorf("%w: JWT_PUBLIC_KEY_PATH is required", ErrInvalidConfig)
	}
	if _, err := jwt.ParseAlgorithm(j.Algorithm); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if j.AccessTTL <= 0 || j.RefreshTTL <= 0 || j.ActionTTL <= 0 {
		return fmt.Errorf("%w: token TTLs must be positive", ErrInvalidConfig)
	}
	if j.ActionTTL > j.AccessTTL || j.AccessTTL > j.RefreshTTL {
		return fmt.Errorf("%w: expected action TTL <= access TTL <= refresh TTL", ErrInvalidConfig)
	}
	if j.Leeway < 0 || j.Leeway.Std() > 2*time.Minute {
		return fmt.Errorf("%w: JWT_LEEWAY must be between 0 and 2m", ErrInvalidConfig)
	}

	if c.Redis.Port < 0 || c.Redis.Port > 65535 {
		return fmt.Errorf("%w: REDIS_CLIENT_PORT out of range", ErrInvalidConfig)
	}

	if c.LoginLimit.Points < 1 {
		return fmt.Errorf("%w: LOGIN_LIMIT_POINTS must be >= 1", ErrInvalidConfig)
	}
	if c.LoginLimit.Window <= 0 || c.LoginLimit.Block <= 0 {
		return fmt.Errorf("%w: login limit window and block must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: LOG_FORMAT must be json or console", ErrInvalidConfig)
	}
	return nil
}

// TokenConfig resolves key material and returns the jwt package configuration. Key files are
// read here, so a missing or unreadable file fails at startup.
func (c *Config) TokenConfig() (jwt.Config, error) {
	alg, err := jwt.ParseAlgorithm(c.JWT.Algorithm)
	if err != nil {
		return jwt.Config{}, err
	}

	priv, pub := cloneBytes(c.JWT.PrivateKeyPEM), cloneBytes(c.JWT.PublicKeyPEM)
	if len(priv) == 0 || len(pub) == 0 {
		fp, fpub, err := jwt.LoadKeyFiles(c.JWT.PrivateKeyPath, c.JWT.PublicKeyPath)
		if err != nil {
			return jwt.Config{}, err
		}
		if len(priv) == 0 {
			priv = fp
		}
		if len(pub) == 0 {
			pub = fpub
		}
	}

	return jwt.Config{
		Algorithm:     alg,
		PrivateKeyPEM: priv,
		PublicKeyPEM:  pub,
		Issuer:        c.JWT.Issuer,
		Audience:      c.JWT.Audience,
		AccessTTL:     c.JWT.AccessTTL.Std(),
		RefreshTTL:    c.JWT.RefreshTTL.Std(),
		ActionTTL:     c.JWT.ActionTTL.Std(),
		Leeway:        c.JWT.Leeway.Std(),
	}, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKeyPEM = cloneBytes(cfg.JWT.PrivateKeyPEM)
	out.JWT.PublicKeyPEM = cloneBytes(cfg.JWT.PublicKeyPEM)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
