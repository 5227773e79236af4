package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	// Each binary gets its own port so both can run on one host without
	// overrides.
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8081, cfg.Server.StreamPort)
	assert.NotEqual(t, cfg.Server.Port, cfg.Server.StreamPort)

	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.True(t, cfg.Bidding.SnipeEnabled)
	assert.Equal(t, 30*time.Second, cfg.Bidding.SnipeThreshold)
	assert.Equal(t, 30*time.Second, cfg.Bidding.SnipeExtension)
	assert.False(t, cfg.Bidding.FastFinishEnabled)
	assert.Equal(t, 3*time.Second, cfg.Bidding.LockWaitTimeout)
	assert.Equal(t, 10*time.Second, cfg.Bidding.LockLeaseTimeout)
}
