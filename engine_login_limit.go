package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/tokenguard/internal"
	"github.com/MrEthical07/tokenguard/internal/rate"
)

// LoginAttempt reports the limiter state after a successful ConsumeLogin.
type LoginAttempt struct {
	Count     int
	Remaining int
	ResetIn   time.Duration
}

// LoginStatus is a read-only view of an identifier's limiter state.
type LoginStatus struct {
	Count      int
	Blocked    bool
	RetryAfter time.Duration
}

// ConsumeLogin spends one attempt for identifier. Call it before checking credentials and
// call ResetLogin after a successful login.
//
// While blocked it returns a *LoginBlockedError (matching ErrLoginBlocked). If the limiter
// backend cannot be reached it returns ErrLimiterUnavailable, and the login must be refused.
func (e *Engine) ConsumeLogin(ctx context.Context, identifier string) (LoginAttempt, error) {
	if e == nil || e.loginLimiter == nil {
		return LoginAttempt{}, ErrEngineNotReady
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return LoginAttempt{}, ErrMissingIdentifier
	}

	res, err := e.loginLimiter.Consume(ctx, identifier)
	if err != nil {
		return LoginAttempt{}, e.limiterError(identifier, err)
	}
	e.metricInc(MetricLoginAttempt)
	return LoginAttempt{Count: res.Count, Remaining: res.Remaining, ResetIn: res.ResetIn}, nil
}

// ResetLogin clears the counter and any block for identifier.
func (e *Engine) ResetLogin(ctx context.Context, identifier string) error {
	if e == nil || e.loginLimiter == nil {
		return ErrEngineNotReady
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ErrMissingIdentifier
	}
	if err := e.loginLimiter.Reset(ctx, identifier); err != nil {
		return e.limiterError(identifier, err)
	}
	e.metricInc(MetricLoginReset)
	return nil
}

// LoginStatus reports the current limiter state for identifier without consuming an attempt.
func (e *Engine) LoginStatus(ctx context.Context, identifier string) (LoginStatus, error) {
	if e == nil || e.loginLimiter == nil {
		return LoginStatus{}, ErrEngineNotReady
	}
	st, err := e.loginLimiter.Status(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return LoginStatus{}, e.limiterError(identifier, err)
	}
	return LoginStatus{Count: st.Count, Blocked: st.Blocked, RetryAfter: st.RetryAfter}, nil
}

func (e *Engine) limiterError(identifier string, err error) error {
	var blocked *rate.BlockedError
	if errors.As(err, &blocked) {
		e.metricInc(MetricLoginBlocked)
		e.logger.Warn().Str("identifier_hash", internal.HashToken(identifier)).Dur("retry_after", blocked.RetryAfter).Msg("login blocked")
		return &LoginBlockedError{RetryAfter: blocked.RetryAfter}
	}
	e.metricInc(MetricLimiterUnavailable)
	e.logger.Error().Err(err).Msg("login limiter unavailable")
	return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
}
