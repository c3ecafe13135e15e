package tokenguard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/tokenguard/jwt"
)

type emailChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func TestActionTokenRoundTripAndSingleUse(t *testing.T) {
	engine, mr, _ := newTestEngine(t, nil)
	ctx := context.Background()
	params := emailChange{From: "a@example.com", To: "b@example.com"}

	token, err := engine.IssueAction(ctx, ActionRequest{
		UserID:     "u1",
		Roles:      []string{"user"},
		ActionType: "change_email",
		Params:     params,
	})
	require.NoError(t, err)

	claims, err := engine.VerifyAction(ctx, token, "change_email", params)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Subject)
	require.Equal(t, "change_email", claims.ActionType)
	require.True(t, mr.Exists("action:"+claims.ID))
	require.LessOrEqual(t, mr.TTL("action:"+claims.ID), time.Minute)

	_, err = engine.VerifyAction(ctx, token, "change_email", params)
	require.ErrorIs(t, err, ErrActionReplay)
}

func TestActionTokenFollowsSessionRevocation(t *testing.T) {
	engine, mr, _ := newTestEngine(t, nil)
	ctx := context.Background()
	params := emailChange{From: "a@example.com", To: "b@example.com"}

	tokens, err := engine.IssueSession(ctx, SessionRequest{UserID: "u1", Roles: []string{"user"}})
	require.NoError(t, err)
	issue := func() string {
		token, err := engine.IssueAction(ctx, ActionRequest{
			UserID:     "u1",
			Roles:      []string{"user"},
			SessionID:  tokens.SessionID,
			ActionType: "change_email",
			Params:     params,
		})
		require.NoError(t, err)
		return token
	}

	live := issue()
	claims, err := engine.VerifyAction(ctx, live, "change_email", params)
	require.NoError(t, err)
	require.Equal(t, tokens.SessionID, claims.SessionID)

	revoked := issue()
	require.NoError(t, engine.Logout(ctx, "u1", tokens.SessionID))
	_, err = engine.VerifyAction(ctx, revoked, "change_email", params)
	require.ErrorIs(t, err, ErrSessionRevoked)

	mr.SetError("READONLY")
	_, err = engine.VerifyAction(ctx, issue(), "change_email", params)
	require.ErrorIs(t, err, ErrRegistryUnavailable)
}

func TestActionTokenBoundToOperation(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()
	params := map[string]any{"amount": 10, "to": "acct-1"}

	token, err := engine.IssueAction(ctx, ActionRequest{UserID: "u1", Roles: []string{"user"}, ActionType: "transfer", Params: params})
	require.NoError(t, err)

	_, err = engine.VerifyAction(ctx, token, "delete_account", params)
	require.ErrorIs(t, err, ErrActionMismatch)

	_, err = engine.VerifyAction(ctx, token, "transfer", map[string]any{"amount": 1000, "to": "acct-1"})
	require.ErrorIs(t, err, ErrActionMismatch)

	// map key order does not matter
	_, err = engine.VerifyAction(ctx, token, "transfer", map[string]any{"to": "acct-1", "amount": 10})
	require.NoError(t, err)
}

func TestActionTokenRejectsOtherClasses(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	tokens, err := engine.IssueSession(ctx, SessionRequest{UserID: "u1", Roles: []string{"user"}})
	require.NoError(t, err)

	_, err = engine.VerifyAction(ctx, tokens.AccessToken, "anything", nil)
	require.ErrorIs(t, err, ErrActionInvalid)
	require.Equal(t, jwt.KindMalformed, jwt.KindOf(err))
}

func TestActionTokenExpires(t *testing.T) {
	clock := newFakeClock()
	_, rdb := newTestRedis(t)
	engine, err := New().WithConfig(testConfig(t)).WithRedis(rdb).WithClock(clock.Now).Build()
	require.NoError(t, err)
	ctx := context.Background()

	token, err := engine.IssueAction(ctx, ActionRequest{UserID: "u1", Roles: []string{"user"}, ActionType: "confirm", Params: "x"})
	require.NoError(t, err)

	clock.Advance(time.Minute + time.Second)
	_, err = engine.VerifyAction(ctx, token, "confirm", "x")
	require.ErrorIs(t, err, ErrActionInvalid)
	require.Equal(t, jwt.KindExpired, jwt.KindOf(err))
}

func TestActionTokenStoreDown(t *testing.T) {
	engine, mr, _ := newTestEngine(t, nil)
	ctx := context.Background()

	token, err := engine.IssueAction(ctx, ActionRequest{UserID: "u1", Roles: []string{"user"}, ActionType: "confirm", Params: 1})
	require.NoError(t, err)

	mr.Close()
	_, err = engine.VerifyAction(ctx, token, "confirm", 1)
	require.ErrorIs(t, err, ErrRegistryUnavailable)
}
