package config

import (
	"Surplus-Share-Backend/internal/utils"
	"Surplus-Share-Backend/pkg/pickup"
	"Surplus-Share-Backend/pkg/scheduler"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultTimezone = "Asia/Jakarta"

// LifecycleConfig is the typed form of the lifecycle keys in config.yaml.
type LifecycleConfig struct {
	Location  *time.Location
	Tolerance pickup.Tolerance
	Scheduler scheduler.Config
}

// LoadLifecycleConfig reads the lifecycle keys through utils.GetConfig.
// Missing keys fall back to their defaults; malformed values are errors.
func LoadLifecycleConfig() (LifecycleConfig, error) {
	return parseLifecycleConfig(utils.GetConfig)
}

func parseLifecycleConfig(get func(string) string) (LifecycleConfig, error) {
	tz := strings.TrimSpace(get("APP_TIMEZONE"))
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return LifecycleConfig{}, fmt.Errorf("APP_TIMEZONE: %w", err)
	}

	tolerance := pickup.DefaultTolerance()
	if tolerance.EarlyMinutes, err = intOr(get("PICKUP_EARLY_MINUTES"), tolerance.EarlyMinutes); err != nil {
		return LifecycleConfig{}, fmt.Errorf("PICKUP_EARLY_MINUTES: %w", err)
	}
	if tolerance.LateMinutes, err = intOr(get("PICKUP_LATE_MINUTES"), tolerance.LateMinutes); err != nil {
		return LifecycleConfig{}, fmt.Errorf("PICKUP_LATE_MINUTES: %w", err)
	}

	sched := scheduler.DefaultConfig()
	sched.Location = loc
	seconds, err := intOr(get("SCHEDULER_INTERVAL_SECONDS"), int(sched.Interval/time.Second))
	if err != nil || seconds <= 0 {
		return LifecycleConfig{}, fmt.Errorf("SCHEDULER_INTERVAL_SECONDS: must be a positive integer")
	}
	sched.Interval = time.Duration(seconds) * time.Second

	if raw := strings.TrimSpace(get("EXPIRY_NOTIFY_THRESHOLDS")); raw != "" {
		thresholds, err := parseThresholds(raw)
		if err != nil {
			return LifecycleConfig{}, fmt.Errorf("EXPIRY_NOTIFY_THRESHOLDS: %w", err)
		}
		sched.ExpiryThresholds = thresholds
	}

	return LifecycleConfig{Location: loc, Tolerance: tolerance, Scheduler: sched}, nil
}

func intOr(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// parseThresholds reads a comma separated list of hours, e.g. "48,24".
func parseThresholds(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		h, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || h <= 0 {
			return nil, fmt.Errorf("invalid threshold %q", part)
		}
		out = append(out, h)
	}
	return out, nil
}
