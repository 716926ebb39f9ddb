package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/firewatch-etl/internal/config"
)

func TestNewLogger(t *testing.T) {
	cases := []struct {
		level  string
		format string
	}{
		{"debug", "json"},
		{"info", "text"},
		{"warn", "json"},
		{"error", "text"},
		{"unknown", "unknown"},
	}

	for _, tc := range cases {
		logger := NewLogger(&config.Config{LogLevel: tc.level, LogFormat: tc.format})
		require.NotNil(t, logger, "level=%s format=%s", tc.level, tc.format)
	}
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	require.NotNil(t, m)

	// Unregistered metrics are safe to exercise from any number of tests.
	m.BatchesConsumed.Inc()
	m.BatchSize.Observe(10)
	m.EnrichRequests.WithLabelValues("success").Inc()
	m.EnrichCache.WithLabelValues("hit").Inc()
	m.PipelineRunning.Set(1)

	second := NewMetricsForTesting()
	assert.NotSame(t, m, second)
}
