package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/tokenguard/internal"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/session"
)

// IssueSession mints an access/refresh pair for an already verified identity and records the
// new session. The session record is written before its id becomes visible in the registry,
// so a token can never reference a member with no backing record.
func (e *Engine) IssueSession(ctx context.Context, req SessionRequest) (*SessionTokens, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if req.UserID == "" || len(req.Roles) == 0 {
		return nil, fmt.Errorf("%w: user id and roles are required", ErrSessionCreationFailed)
	}
	return e.issueSession(ctx, req, true)
}

func (e *Engine) issueSession(ctx context.Context, req SessionRequest, mastery bool) (*SessionTokens, error) {
	now := e.now()
	sid, err := internal.NewSessionID(now)
	if err != nil {
		e.metricInc(MetricSessionIssueFailed)
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	claims := jwt.Claims{
		Roles:      req.Roles,
		Scope:      req.Scope,
		DeviceID:   req.DeviceID,
		DeviceHash: req.DeviceHash,
		SessionID:  sid,
	}
	opts := jwt.IssueOptions{Audience: req.Audience, Subject: req.UserID}

	access, err := e.jwtManager.Issue(jwt.ClassAccess, claims, opts)
	if err != nil {
		e.metricInc(MetricSessionIssueFailed)
		return nil, err
	}
	refresh, err := e.jwtManager.Issue(jwt.ClassRefresh, claims, opts)
	if err != nil {
		e.metricInc(MetricSessionIssueFailed)
		return nil, err
	}

	refreshTTL := e.jwtManager.TTL(jwt.ClassRefresh)
	refreshExp := now.Add(refreshTTL)
	rec := &session.Session{
		SessionID:   sid,
		UserID:      req.UserID,
		DeviceID:    req.DeviceID,
		DeviceHash:  req.DeviceHash,
		RefreshHash: internal.HashToken(refresh),
		CreatedAt:   now.Unix(),
		ExpiresAt:   refreshExp.Unix(),
		Mastery:     mastery,
	}

	if err := e.sessionStore.Save(ctx, rec, refreshTTL); err != nil {
		e.metricInc(MetricSessionIssueFailed)
		e.logger.Error().Err(err).Str("user_id", req.UserID).Msg("session record write failed")
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	if err := e.registry.Add(ctx, req.UserID, sid); err != nil {
		_ = e.sessionStore.Delete(context.WithoutCancel(ctx), sid)
		e.metricInc(MetricSessionIssueFailed)
		e.logger.Error().Err(err).Str("user_id", req.UserID).Msg("session registry add failed")
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	e.metricInc(MetricSessionIssued)
	e.logger.Debug().
		Str("user_id", req.UserID).
		Str("session_id", sid).
		Bool("mastery", mastery).
		Msg("session issued")

	return &SessionTokens{
		SessionID:        sid,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(e.jwtManager.TTL(jwt.ClassAccess)),
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh rotates a refresh token. The presented token is consumed exactly once; its session
// is replaced by a derived (non-mastery) session with the same roles and device. Presenting a
// consumed token again revokes every session of the user and returns ErrRefreshReuse.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	tokens, err := e.refresh(ctx, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	e.metricInc(MetricRefreshSuccess)
	return tokens, nil
}

func (e *Engine) refresh(ctx context.Context, refreshToken string) (*SessionTokens, error) {
	claims, err := e.jwtManager.Verify(jwt.ClassRefresh, refreshToken, jwt.VerifyOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshInvalid, err)
	}
	userID, sid := claims.Subject, claims.SessionID
	if userID == "" || sid == "" {
		return nil, ErrRefreshInvalid
	}

	rec, err := e.sessionStore.Get(ctx, sid)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return nil, ErrRefreshInvalid
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	hash := internal.HashToken(refreshToken)
	if rec.UserID != userID || !internal.EqualHash(rec.RefreshHash, hash) {
		return nil, ErrRefreshInvalid
	}
	if rec.Used {
		return nil, e.refreshReuse(ctx, userID, sid)
	}

	member, err := e.registry.IsMember(ctx, userID, sid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	if !member {
		return nil, ErrRefreshInvalid
	}

	switch err := e.sessionStore.MarkUsed(ctx, sid, hash); {
	case errors.Is(err, session.ErrAlreadyUsed):
		return nil, e.refreshReuse(ctx, userID, sid)
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrRefreshHashMismatch):
		return nil, ErrRefreshInvalid
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	var audience string
	if len(claims.Audience) > 0 {
		audience = claims.Audience[0]
	}
	tokens, err := e.issueSession(ctx, SessionRequest{
		UserID:     userID,
		Roles:      claims.Roles,
		Scope:      claims.Scope,
		DeviceID:   rec.DeviceID,
		DeviceHash: rec.DeviceHash,
		Audience:   audience,
	}, false)
	if err != nil {
		if uerr := e.sessionStore.UnmarkUsed(context.WithoutCancel(ctx), sid, hash); uerr != nil {
			e.logger.Error().Err(uerr).Str("user_id", userID).Str("session_id", sid).Msg("consumed refresh token not restored")
		}
		return nil, err
	}

	// The consumed record stays until its TTL so a replay is recognised as reuse.
	if err := e.registry.Remove(ctx, userID, sid); err != nil && !errors.Is(err, session.ErrNotMember) {
		e.logger.Error().Err(err).Str("user_id", userID).Str("session_id", sid).Msg("rotated session not removed")
	}
	return tokens, nil
}

func (e *Engine) refreshReuse(ctx context.Context, userID, sid string) error {
	e.metricInc(MetricRefreshReuseDetected)
	e.logger.Warn().Str("user_id", userID).Str("session_id", sid).Msg("refresh token reuse, revoking all sessions")
	if _, err := e.revokeAll(context.WithoutCancel(ctx), userID); err != nil {
		e.logger.Error().Err(err).Str("user_id", userID).Msg("revoke after reuse failed")
	}
	return ErrRefreshReuse
}

// Logout revokes one session. Access tokens carrying its id are rejected from the next
// Authorize call on, even though they have not expired. Logging out a session that is not
// logged in returns ErrSessionNotFound.
func (e *Engine) Logout(ctx context.Context, userID, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := e.registry.Remove(ctx, userID, sessionID); err != nil {
		switch {
		case errors.Is(err, session.ErrNotMember), errors.Is(err, session.ErrInvalidKey):
			return ErrSessionNotFound
		default:
			e.logger.Error().Err(err).Str("user_id", userID).Msg("logout failed")
			return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
		}
	}
	if err := e.sessionStore.Delete(ctx, sessionID); err != nil {
		e.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session record not deleted")
	}
	e.metricInc(MetricLogout)
	return nil
}

// LogoutAll revokes every session of userID and returns how many were logged in.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	n, err := e.revokeAll(ctx, userID)
	if err != nil {
		e.logger.Error().Err(err).Str("user_id", userID).Msg("logout all failed")
		return 0, err
	}
	e.metricInc(MetricLogoutAll)
	return n, nil
}

func (e *Engine) revokeAll(ctx context.Context, userID string) (int, error) {
	ids, err := e.registry.RemoveAll(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrInvalidKey) {
			return 0, ErrSessionNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	if err := e.sessionStore.Delete(ctx, ids...); err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("session records not deleted")
	}
	return len(ids), nil
}

// Sessions lists the logged-in sessions of userID. Members whose record has already expired
// are pruned from the registry first.
func (e *Engine) Sessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if _, err := e.registry.Prune(ctx, userID, e.sessionStore.Alive); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	ids, err := e.registry.Members(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	out := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		rec, err := e.sessionStore.Get(ctx, id)
		if errors.Is(err, session.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
		}
		out = append(out, SessionInfo{
			SessionID: id,
			DeviceID:  rec.DeviceID,
			CreatedAt: time.Unix(rec.CreatedAt, 0),
			ExpiresAt: rec.ExpiresAtTime(),
			Mastery:   rec.Mastery,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}
