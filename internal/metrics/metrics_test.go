package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncDecision("converter", "SCALE_UP")
	m.IncDecision("converter", "SCALE_UP")
	m.IncScalingApplied("converter", "SCALE_UP")
	m.IncScalingFailure("converter", "SCALE_DOWN")
	m.IncAdmission("FREE", "LIMIT_EXCEEDED")
	m.IncCacheLookup("PRO", true)
	m.IncCacheLookup("PRO", false)
	m.IncCacheLookup("PRO", false)
	m.SetDesiredCount("converter", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisionsTotal.WithLabelValues("converter", "SCALE_UP")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scalingAppliedTotal.WithLabelValues("converter", "SCALE_UP")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scalingFailuresTotal.WithLabelValues("converter", "SCALE_DOWN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.admissionTotal.WithLabelValues("FREE", "LIMIT_EXCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("PRO", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("PRO", "miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.desiredCount.WithLabelValues("converter")))
}

func TestMetrics_RegisterTwiceIsTolerated(t *testing.T) {
	m := New()
	registry := prometheus.NewRegistry()

	require.NoError(t, m.Register(registry))
	require.NoError(t, m.Register(registry))

	m.ObserveCycle("converter", 250*time.Millisecond)
	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestGet_ReturnsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}
