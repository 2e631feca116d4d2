package resilience

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFillsZeroValues(t *testing.T) {
	cfg := Config{
		RetryInitialBackoff: 2 * time.Second,
		RetryMaxBackoff:     time.Second,
		RetryMultiplier:     0.5,
		BreakerFailureRatio: 1.5,
	}.normalize()

	def := DefaultConfig()
	assert.Equal(t, def.RetryMaxAttempts, cfg.RetryMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryMaxBackoff, "max backoff never drops below the initial one")
	assert.Equal(t, def.RetryMultiplier, cfg.RetryMultiplier)
	assert.Equal(t, def.BreakerFailureRatio, cfg.BreakerFailureRatio)
	assert.Equal(t, def.BreakerMinRequests, cfg.BreakerMinRequests)
	assert.Equal(t, def.BreakerHalfOpenMaxCalls, cfg.BreakerHalfOpenMaxCalls)
}

func TestConfigLogValueOmitsBreakerWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg := DefaultConfig()
	cfg.BreakerEnabled = false
	logger.Info("policy", "policy", cfg)

	var entry struct {
		Policy map[string]any `json:"policy"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.EqualValues(t, 1, entry.Policy["retry_max_attempts"])
	assert.Equal(t, false, entry.Policy["breaker_enabled"])
	assert.NotContains(t, entry.Policy, "breaker_open_timeout")
}
