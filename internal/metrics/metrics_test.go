package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	// Registering the same collectors twice must fail.
	assert.Error(t, m.Register(reg))
}

func TestCounters(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.RecordEvent(EventView)
	m.RecordEvent(EventProgress)
	m.RecordEvent(EventProgress)
	m.RecordCompletion()
	m.RecordCacheHit(EntrySummary)
	m.RecordCacheMiss(EntrySummary)
	m.RecordCacheMiss(EntryPopular)
	m.RecordInvalidationFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues(EventView)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues(EventProgress)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits.WithLabelValues(EntrySummary)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses.WithLabelValues(EntrySummary)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses.WithLabelValues(EntryPopular)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invalidationFailures))
}
