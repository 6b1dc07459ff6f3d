package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_STRING", "custom_value")
	assert.Equal(t, "custom_value", LoadEnvString("TEST_STRING", "default_value"))

	t.Setenv("TEST_STRING", "")
	assert.Equal(t, "default_value", LoadEnvString("TEST_STRING", "default_value"))
}

func TestLoadEnvWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		want         string
		wantFallback bool
	}{
		{name: "valid", value: "0 6 * * *", want: "0 6 * * *"},
		{name: "unset", value: "", want: "5 0 * * *"},
		{name: "invalid", value: "not a cron", want: "5 0 * * *", wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CRON", tt.value)

			result := LoadEnvWithFallback("TEST_CRON", "5 0 * * *", ValidateCronSchedule)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantFallback {
				assert.Len(t, result.Warnings, 1)
				assert.Contains(t, result.Warnings[0], "TEST_CRON")
				assert.Contains(t, result.Warnings[0], "falling back to default")
			} else {
				assert.Empty(t, result.Warnings)
			}
		})
	}
}

func TestLoadEnvWithFallback_NoValidator(t *testing.T) {
	t.Setenv("TEST_STRING", "any_value")

	result := LoadEnvWithFallback("TEST_STRING", "default", nil)

	assert.Equal(t, "any_value", result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		want         time.Duration
		wantFallback bool
	}{
		{name: "milliseconds", value: "1100ms", want: 1100 * time.Millisecond},
		{name: "unset", value: "", want: time.Second},
		{name: "unparseable", value: "soon", want: time.Second, wantFallback: true},
		{name: "out of range", value: "-5s", want: time.Second, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)

			result := LoadEnvDuration("TEST_DURATION", time.Second, ValidatePositiveDuration)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	validator := func(v int) error { return ValidateIntRange(v, 0, 10) }

	t.Setenv("TEST_INT", "3")
	assert.Equal(t, 3, LoadEnvInt("TEST_INT", 2, validator).Value)

	t.Setenv("TEST_INT", "3x")
	result := LoadEnvInt("TEST_INT", 2, validator)
	assert.Equal(t, 2, result.Value)
	assert.True(t, result.FallbackApplied)
	assert.Contains(t, result.Warnings[0], "invalid integer format")

	t.Setenv("TEST_INT", "11")
	result = LoadEnvInt("TEST_INT", 2, validator)
	assert.Equal(t, 2, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvFloat(t *testing.T) {
	validator := func(v float64) error { return ValidateFloatRange(v, 0, 100) }

	t.Setenv("TEST_FLOAT", "0.5")
	assert.Equal(t, 0.5, LoadEnvFloat("TEST_FLOAT", 1, validator).Value)

	t.Setenv("TEST_FLOAT", "fast")
	result := LoadEnvFloat("TEST_FLOAT", 1, validator)
	assert.Equal(t, 1.0, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "t"} {
		t.Setenv("TEST_BOOL", v)
		assert.True(t, LoadEnvBool("TEST_BOOL", false).Value, v)
	}
	for _, v := range []string{"0", "false", "F"} {
		t.Setenv("TEST_BOOL", v)
		assert.False(t, LoadEnvBool("TEST_BOOL", true).Value, v)
	}

	t.Setenv("TEST_BOOL", "yes")
	result := LoadEnvBool("TEST_BOOL", true)
	assert.True(t, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvStringList(t *testing.T) {
	t.Setenv("TEST_LIST", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, LoadEnvStringList("TEST_LIST", nil))

	t.Setenv("TEST_LIST", "")
	assert.Equal(t, []string{"x"}, LoadEnvStringList("TEST_LIST", []string{"x"}))
}

func TestTracker(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := NewConfigMetricsWith(prometheus.NewRegistry(), "test_tracker")
	tracker := NewTracker(logger, m)

	t.Setenv("TEST_TRACK_OK", "2s")
	t.Setenv("TEST_TRACK_BAD", "nope")

	ok := Apply(tracker, "ok", LoadEnvDuration("TEST_TRACK_OK", time.Second, nil))
	bad := Apply(tracker, "bad", LoadEnvDuration("TEST_TRACK_BAD", time.Second, nil))

	assert.Equal(t, 2*time.Second, ok)
	assert.Equal(t, time.Second, bad)
	assert.True(t, tracker.Finish())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("bad")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackActive))
	assert.Contains(t, buf.String(), "Configuration fallback applied")
	assert.Contains(t, buf.String(), `"field":"bad"`)
}

func TestTracker_NilMetrics(t *testing.T) {
	tracker := NewTracker(nil, nil)
	t.Setenv("TEST_TRACK_NIL", "nope")

	assert.NotPanics(t, func() {
		Apply(tracker, "x", LoadEnvInt("TEST_TRACK_NIL", 1, nil))
		assert.True(t, tracker.Finish())
	})
}
