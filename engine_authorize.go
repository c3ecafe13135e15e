package tokenguard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/tokenguard/internal"
	"github.com/MrEthical07/tokenguard/jwt"
)

var errDeviceMismatch = errors.New("device hash mismatch")

// Authorize runs the request-time check on an Authorization header value:
//
//	header present -> token verifies (access class) -> subject and session id present
//	  -> session is a member of the subject's registry set -> Identity
//
// Any failure returns an *AuthError with a stable Reason. A registry that cannot answer, or a
// ctx that ends before it does, is reported as ReasonRegistryUnavailable and never as a valid
// session. Authorize does not mutate the registry.
func (e *Engine) Authorize(ctx context.Context, authorization string) (*Identity, error) {
	start := time.Now()
	id, err := e.authorize(ctx, authorization)
	if e != nil {
		e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
	}
	if err != nil {
		e.observeRejection(err)
		return nil, err
	}
	e.metricInc(MetricAuthorized)
	e.logger.Debug().Str("user_id", id.UserID).Str("session_id", id.SessionID).Msg("authorized")
	return id, nil
}

// AuthorizeToken is Authorize for a bare token, without the Bearer scheme.
func (e *Engine) AuthorizeToken(ctx context.Context, token string) (*Identity, error) {
	return e.Authorize(ctx, "Bearer "+token)
}

func (e *Engine) authorize(ctx context.Context, authorization string) (*Identity, error) {
	if !e.ready() {
		return nil, reject(ReasonRegistryUnavailable, ErrEngineNotReady)
	}

	token, ok := bearerToken(authorization)
	if !ok {
		return nil, reject(ReasonNoToken, nil)
	}

	claims, err := e.jwtManager.Verify(jwt.ClassAccess, token, jwt.VerifyOptions{})
	if err != nil {
		return nil, reject(ReasonInvalidToken, err)
	}

	userID, sid := claims.Subject, claims.SessionID
	if userID == "" || sid == "" {
		return nil, reject(ReasonInvalidClaims, nil)
	}

	if e.config.Session.BindDevice && claims.DeviceHash != "" {
		got := deviceHashFromContext(ctx)
		if got == "" || !internal.EqualHash(got, claims.DeviceHash) {
			e.metricInc(MetricDeviceMismatch)
			return nil, reject(ReasonInvalidClaims, errDeviceMismatch)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, reject(ReasonRegistryUnavailable, err)
	}
	member, err := e.registry.IsMember(ctx, userID, sid)
	if err != nil {
		return nil, reject(ReasonRegistryUnavailable, err)
	}
	if !member {
		return nil, reject(ReasonSessionRevoked, nil)
	}

	return &Identity{
		UserID:    userID,
		SessionID: sid,
		Roles:     claims.Roles,
		Scope:     claims.Scope,
		DeviceID:  claims.DeviceID,
		ExpiresAt: claims.ExpiresAtTime(),
		Claims:    claims,
	}, nil
}

func (e *Engine) observeRejection(err error) {
	if e == nil {
		return
	}
	var ae *AuthError
	if !errors.As(err, &ae) {
		return
	}

	switch ae.Reason {
	case ReasonNoToken:
		e.metricInc(MetricRejectedNoToken)
	case ReasonInvalidToken:
		e.metricInc(MetricRejectedInvalidToken)
	case ReasonInvalidClaims:
		e.metricInc(MetricRejectedInvalidClaims)
	case ReasonSessionRevoked:
		e.metricInc(MetricRejectedSessionRevoked)
	case ReasonRegistryUnavailable:
		e.metricInc(MetricRegistryUnavailable)
		e.logger.Error().Err(ae.Err).Str("reason", string(ae.Reason)).Msg("authorization rejected")
		return
	}

	ev := e.logger.Warn().Str("reason", string(ae.Reason))
	if ae.Reason == ReasonInvalidToken {
		ev = ev.Str("kind", ae.Kind.String())
	}
	ev.Msg("authorization rejected")
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
