package tokenguard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceBindingEnforced(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(c *Config) { c.Session.BindDevice = true })
	ctx := context.Background()

	tokens, err := engine.IssueSession(ctx, SessionRequest{UserID: "u1", Roles: []string{"user"}, DeviceHash: "fp-1"})
	require.NoError(t, err)
	header := "Bearer " + tokens.AccessToken

	_, err = engine.Authorize(WithDeviceHash(ctx, "fp-1"), header)
	require.NoError(t, err)

	_, err = engine.Authorize(WithDeviceHash(ctx, "fp-2"), header)
	require.Equal(t, ReasonInvalidClaims, ReasonOf(err))

	_, err = engine.Authorize(ctx, header)
	require.Equal(t, ReasonInvalidClaims, ReasonOf(err), "missing device hash is rejected")

	require.EqualValues(t, 2, engine.MetricsSnapshot().Counters[MetricDeviceMismatch])
}

func TestDeviceBindingDisabledIgnoresHash(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	tokens, err := engine.IssueSession(ctx, SessionRequest{UserID: "u1", Roles: []string{"user"}, DeviceHash: "fp-1"})
	require.NoError(t, err)

	_, err = engine.Authorize(WithDeviceHash(ctx, "fp-2"), "Bearer "+tokens.AccessToken)
	require.NoError(t, err)
}

func TestDeviceBindingSkipsTokensWithoutHash(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(c *Config) { c.Session.BindDevice = true })
	ctx := context.Background()

	tokens, err := engine.IssueSession(ctx, SessionRequest{UserID: "u1", Roles: []string{"user"}})
	require.NoError(t, err)

	_, err = engine.Authorize(ctx, "Bearer "+tokens.AccessToken)
	require.NoError(t, err)
}
