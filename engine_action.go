package tokenguard

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenguard/internal"
	"github.com/MrEthical07/tokenguard/jwt"
)

const actionKeyPrefix = "action:"

// ActionRequest describes a one-time operation to authorize, such as confirming an email
// change. Params is hashed into the token; the same value must be presented to VerifyAction.
type ActionRequest struct {
	UserID     string
	Roles      []string
	SessionID  string
	ActionType string
	Params     any
}

// IssueAction mints a short-lived token bound to req.ActionType and the hash of req.Params.
func (e *Engine) IssueAction(ctx context.Context, req ActionRequest) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	hash, err := internal.HashParams(req.Params)
	if err != nil {
		return "", fmt.Errorf("hash action params: %w", err)
	}

	token, err := e.jwtManager.IssueAction(jwt.ActionClaims{
		Claims: jwt.Claims{
			Roles:     req.Roles,
			SessionID: req.SessionID,
		},
		ActionType: req.ActionType,
		ParamsHash: hash,
	}, jwt.IssueOptions{Subject: req.UserID})
	if err != nil {
		return "", err
	}
	e.metricInc(MetricActionIssued)
	return token, nil
}

// VerifyAction checks an action token against the operation being performed and consumes it.
// A token for another action type or parameter set fails with ErrActionMismatch; a second
// use fails with ErrActionReplay. A token bound to a session stops verifying once that
// session is revoked.
func (e *Engine) VerifyAction(ctx context.Context, token, actionType string, params any) (*jwt.ActionClaims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	claims, err := e.verifyAction(ctx, token, actionType, params)
	if err != nil {
		e.metricInc(MetricActionRejected)
		e.logger.Warn().Err(err).Str("action_type", actionType).Msg("action token rejected")
		return nil, err
	}
	e.metricInc(MetricActionVerified)
	return claims, nil
}

func (e *Engine) verifyAction(ctx context.Context, token, actionType string, params any) (*jwt.ActionClaims, error) {
	claims, err := e.jwtManager.VerifyAction(token, jwt.VerifyOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrActionInvalid, err)
	}
	if claims.ActionType != actionType {
		return nil, ErrActionMismatch
	}
	hash, err := internal.HashParams(params)
	if err != nil {
		return nil, fmt.Errorf("hash action params: %w", err)
	}
	if !internal.EqualHash(hash, claims.ParamsHash) {
		return nil, ErrActionMismatch
	}
	if claims.SessionID != "" {
		member, err := e.registry.IsMember(ctx, claims.Subject, claims.SessionID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
		}
		if !member {
			return nil, ErrSessionRevoked
		}
	}

	ttl := claims.ExpiresAtTime().Sub(e.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	first, err := e.redis.SetNX(ctx, actionKeyPrefix+claims.ID, claims.Subject, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	if !first {
		e.metricInc(MetricActionReplay)
		return nil, ErrActionReplay
	}
	return claims, nil
}
