package redisx

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	client, err := Connect(ctx, Config{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestConnectRequiresHost(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	require.ErrorIs(t, err, ErrEmptyHost)
}

func TestConnectFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	host := mr.Host()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err = Connect(ctx, Config{Host: host, Port: port, DialTimeout: 50 * time.Millisecond})
	require.True(t, errors.Is(err, ErrNotReady), "got %v", err)
}

func TestAddrDefaultsPort(t *testing.T) {
	require.Equal(t, "redis:6379", Config{Host: "redis"}.Addr())
	require.Equal(t, "10.0.0.1:7000", Config{Host: "10.0.0.1", Port: 7000}.Addr())
}
