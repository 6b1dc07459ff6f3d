// Package config loads environment values with validation and fail-open fallback.
//
// Every loader returns a Result: a value that is always usable, plus the warnings
// produced when the configured value had to be replaced by the default. An unset
// or empty variable is not a fallback and produces no warning.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one configuration value.
type Result[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

func fallback[T any](envKey, raw string, defaultValue T, err error) Result[T] {
	return Result[T]{
		Value: defaultValue,
		Warnings: []string{fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey, raw, err, defaultValue,
		)},
		FallbackApplied: true,
	}
}

// load reads envKey, parses it and runs the optional validator.
func load[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) Result[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return Result[T]{Value: defaultValue}
	}

	v, err := parse(raw)
	if err != nil {
		return fallback(envKey, raw, defaultValue, err)
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return fallback(envKey, raw, defaultValue, err)
		}
	}
	return Result[T]{Value: v}
}

// LoadEnvString returns the variable, or defaultValue when unset or empty.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string and validates it.
//
//	result := LoadEnvWithFallback("PREWARM_SCHEDULE", "5 0 * * *", ValidateCronSchedule)
//	schedule := result.Value
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) Result[string] {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a Go duration string such as "1100ms" or "24h".
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	return load(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) Result[int] {
	return load(envKey, defaultValue, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvFloat loads a decimal number.
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) Result[float64] {
	return load(envKey, defaultValue, func(s string) (float64, error) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number format")
		}
		return v, nil
	}, validator)
}

// LoadEnvBool accepts the strconv.ParseBool spellings.
func LoadEnvBool(envKey string, defaultValue bool) Result[bool] {
	return load(envKey, defaultValue, func(s string) (bool, error) {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return v, nil
	}, nil)
}

// LoadEnvStringList splits a comma-separated variable, dropping empty items.
func LoadEnvStringList(envKey string, defaultValue []string) []string {
	raw := os.Getenv(envKey)
	if strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Tracker logs and counts the fallbacks of one configuration load.
// Metrics may be nil.
type Tracker struct {
	logger   *slog.Logger
	metrics  *ConfigMetrics
	fallback bool
}

// NewTracker returns a Tracker reporting to logger and metrics.
func NewTracker(logger *slog.Logger, metrics *ConfigMetrics) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger, metrics: metrics}
}

// Apply records r's fallback, if any, under field and returns the value.
func Apply[T any](t *Tracker, field string, r Result[T]) T {
	if r.FallbackApplied {
		t.fallback = true
		if t.metrics != nil {
			t.metrics.RecordValidationError(field)
			t.metrics.RecordFallback(field)
		}
		for _, warning := range r.Warnings {
			t.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	return r.Value
}

// Finish publishes the fallback gauge and load timestamp.
// It reports whether any fallback was applied.
func (t *Tracker) Finish() bool {
	if t.metrics != nil {
		t.metrics.SetFallbackActive(t.fallback)
		t.metrics.RecordLoadTimestamp()
	}
	return t.fallback
}
