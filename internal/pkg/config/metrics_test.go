package config

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigMetricsWith_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConfigMetricsWith(reg, "test_component")

	assert.NotNil(t, m.LoadTimestamp)
	assert.NotNil(t, m.ValidationErrorsTotal)
	assert.NotNil(t, m.FallbacksTotal)
	assert.NotNil(t, m.FallbackActive)
	assert.Equal(t, "test_component", m.componentName)

	m.RecordValidationError("timezone")
	m.RecordFallback("timezone")
	m.RecordLoadTimestamp()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_component_config_load_timestamp")
	assert.Contains(t, names, "test_component_config_validation_errors_total")
	assert.Contains(t, names, "test_component_config_fallbacks_total")
	assert.Contains(t, names, "test_component_config_fallback_active")
}

func TestNewConfigMetricsWith_DuplicatePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewConfigMetricsWith(reg, "dup")

	assert.Panics(t, func() { NewConfigMetricsWith(reg, "dup") })
}

func TestConfigMetrics_Counters(t *testing.T) {
	m := NewConfigMetricsWith(prometheus.NewRegistry(), "test_counters")

	m.RecordValidationError("schedule")
	m.RecordValidationError("schedule")
	m.RecordFallback("schedule")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("schedule")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("schedule")))
}

func TestConfigMetrics_FallbackActive(t *testing.T) {
	m := NewConfigMetricsWith(prometheus.NewRegistry(), "test_active")

	m.SetFallbackActive(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackActive))

	m.SetFallbackActive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FallbackActive))
}

func TestConfigMetrics_LoadTimestamp(t *testing.T) {
	m := NewConfigMetricsWith(prometheus.NewRegistry(), "test_timestamp")

	m.RecordLoadTimestamp()

	assert.Greater(t, testutil.ToFloat64(m.LoadTimestamp), 0.0)
}
