// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DMS_BASE_URL", "http://dms.local")
	t.Setenv("REQUEST_TIMEOUT_SECS", "15")
	t.Setenv("DDS_BASE_URL", "http://dds.local")
	t.Setenv("NODE_URL", "http://node.local:8080")
	t.Setenv("REG_SECRET", "s3cret")
	t.Setenv("SECP256K1_PRIVHEX", "deadbeef")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://dms.local", cfg.DMSBaseURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.HeartbeatJitter)
	assert.Equal(t, time.Second, cfg.PollBackoffMin)
	assert.Equal(t, 30*time.Second, cfg.PollBackoffMax)
	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.InDelta(t, 0.75, cfg.TokenSafetyRatio, 1e-9)
	assert.Equal(t, 3, cfg.TokenReauthMaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.TokenReauthJitter)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.EnableNoop)
	assert.Equal(t, 5*time.Second, cfg.NoopSleep)
}

func TestFromEnv_MissingRequiredNamesKey(t *testing.T) {
	setRequired(t)
	t.Setenv("DMS_BASE_URL", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DMS_BASE_URL")
}

func TestFromEnv_EachRequiredKey(t *testing.T) {
	keys := []string{
		"DMS_BASE_URL", "REQUEST_TIMEOUT_SECS", "DDS_BASE_URL",
		"NODE_URL", "REG_SECRET", "SECP256K1_PRIVHEX",
	}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HEARTBEAT_JITTER_MS", "30")
	t.Setenv("POLL_BACKOFF_MS_MIN", "5")
	t.Setenv("POLL_BACKOFF_MS_MAX", "50")
	t.Setenv("MAX_CONCURRENCY", "4")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("ENABLE_NOOP", "true")
	t.Setenv("NOOP_SLEEP_SECS", "1")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Millisecond, cfg.HeartbeatJitter)
	assert.Equal(t, 5*time.Millisecond, cfg.PollBackoffMin)
	assert.Equal(t, 50*time.Millisecond, cfg.PollBackoffMax)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.EnableNoop)
	assert.Equal(t, time.Second, cfg.NoopSleep)
}

func TestFromEnv_InvalidLogFormat(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_FORMAT", "xml")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}

func TestFromEnv_BackoffBoundsOrdered(t *testing.T) {
	setRequired(t)
	t.Setenv("POLL_BACKOFF_MS_MIN", "2000")
	t.Setenv("POLL_BACKOFF_MS_MAX", "1000")

	_, err := FromEnv()
	require.Error(t, err)
}
