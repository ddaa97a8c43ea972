package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/clinic")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 60*time.Minute, cfg.JWTAccessTokenTTL)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.IsProduction)
}

func TestLoadMissingDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidLockTimeout(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/clinic")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("LOCK_TIMEOUT", "whenever")

	_, err := Load()
	assert.Error(t, err)
}
