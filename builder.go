package tokenguard

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/tokenguard/internal/rate"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/session"
)

// Builder assembles an Engine. It is used once during initialization.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zerolog.Logger
	now    func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the shared backing-store client. It is required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger overrides the logger built from Config.Log.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithClock replaces the wall clock for token timestamps and session expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration, loads key material, and returns the Engine. Any error
// here is a startup failure.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- TOKENS --------
	tokenCfg, err := cfg.TokenConfig()
	if err != nil {
		return nil, err
	}
	jm, err := jwt.NewManager(tokenCfg, jwt.WithClock(now))
	if err != nil {
		return nil, err
	}

	// -------- SESSIONS --------
	refreshTTL := cfg.JWT.RefreshTTL.Std()
	registry := session.NewRegistry(b.redis, refreshTTL)
	store := session.NewStore(b.redis, cfg.Session.RedisPrefix)

	// -------- LOGIN LIMITER --------
	limiter := rate.New(b.redis, rate.Config{
		Points: cfg.LoginLimit.Points,
		Window: cfg.LoginLimit.Window.Std(),
		Block:  cfg.LoginLimit.Block.Std(),
		Prefix: cfg.LoginLimit.Prefix,
	})

	logger := NewLogger(cfg.Log)
	if b.logger != nil {
		logger = *b.logger
	}

	engine := &Engine{
		config:       cfg,
		redis:        b.redis,
		jwtManager:   jm,
		registry:     registry,
		sessionStore: store,
		loginLimiter: limiter,
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger.With().Str("component", "tokenguard").Logger(),
		now:          now,
	}

	b.built = true
	return engine, nil
}
