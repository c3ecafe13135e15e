package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/tokenguard/jwt"
)

func TestRunWritesUsableKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run("EdDSA", dir, false))

	priv, pub, err := jwt.LoadKeyFiles(filepath.Join(dir, "private.pem"), filepath.Join(dir, "public.pem"))
	require.NoError(t, err)

	m, err := jwt.NewManager(jwt.Config{
		Algorithm:     jwt.EdDSA,
		PrivateKeyPEM: priv,
		PublicKeyPEM:  pub,
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		ActionTTL:     30 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, jwt.EdDSA, m.Algorithm())

	info, err := os.Stat(filepath.Join(dir, "private.pem"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRunRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run("ES256", dir, false))
	assert.Error(t, run("ES256", dir, false))
	assert.NoError(t, run("ES256", dir, true))
}

func TestRunUnknownAlgorithm(t *testing.T) {
	assert.Error(t, run("HS256", t.TempDir(), false))
}
