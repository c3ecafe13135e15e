package tokenguard

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/tokenguard/internal/rate"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/session"
)

// Engine composes token issuance, the session registry, and the login limiter. It keeps no
// per-request state; all mutable state lives in Redis, so one Engine serves every request
// concurrently.
type Engine struct {
	config       Config
	redis        redis.UniversalClient
	jwtManager   *jwt.Manager
	registry     *session.Registry
	sessionStore *session.Store
	loginLimiter *rate.Limiter
	metrics      *Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Tokens exposes the underlying token manager for callers that need to issue or verify
// tokens outside the session flow.
func (e *Engine) Tokens() *jwt.Manager {
	return e.jwtManager
}

// Logger returns the component logger.
func (e *Engine) Logger() zerolog.Logger {
	return e.logger
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.jwtManager != nil && e.registry != nil && e.sessionStore != nil
}
