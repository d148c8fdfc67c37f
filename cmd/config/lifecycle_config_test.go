package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getter(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestParseLifecycleConfigDefaults(t *testing.T) {
	cfg, err := parseLifecycleConfig(getter(nil))
	require.NoError(t, err)

	assert.Equal(t, "Asia/Jakarta", cfg.Location.String())
	assert.Equal(t, 30, cfg.Tolerance.EarlyMinutes)
	assert.Equal(t, 30, cfg.Tolerance.LateMinutes)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, []int{48, 24}, cfg.Scheduler.ExpiryThresholds)
	assert.Equal(t, cfg.Location, cfg.Scheduler.Location)
}

func TestParseLifecycleConfigOverrides(t *testing.T) {
	cfg, err := parseLifecycleConfig(getter(map[string]string{
		"APP_TIMEZONE":               "UTC",
		"PICKUP_EARLY_MINUTES":       "30",
		"PICKUP_LATE_MINUTES":        "5",
		"SCHEDULER_INTERVAL_SECONDS": "300",
		"EXPIRY_NOTIFY_THRESHOLDS":   "72, 12",
	}))
	require.NoError(t, err)

	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 30, cfg.Tolerance.EarlyMinutes)
	assert.Equal(t, 5, cfg.Tolerance.LateMinutes)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, []int{72, 12}, cfg.Scheduler.ExpiryThresholds)
}

func TestParseLifecycleConfigRejectsMalformedValues(t *testing.T) {
	for key, value := range map[string]string{
		"APP_TIMEZONE":               "Mars/Olympus",
		"PICKUP_EARLY_MINUTES":       "soon",
		"SCHEDULER_INTERVAL_SECONDS": "0",
		"EXPIRY_NOTIFY_THRESHOLDS":   "24,-1",
	} {
		t.Run(key, func(t *testing.T) {
			_, err := parseLifecycleConfig(getter(map[string]string{key: value}))
			assert.Error(t, err)
		})
	}
}
