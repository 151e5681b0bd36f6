package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dernier-metro/internal/metrics"
)

func TestParseClock(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	got, err := parseClock("", now, loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(now))
	assert.Equal(t, loc, got.Location())

	got, err = parseClock("00:50", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 50, 0, 0, loc), got)

	got, err = parseClock("2025-03-12T07:00:00Z", now, loc)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Hour())

	_, err = parseClock("tomorrow", now, loc)
	assert.Error(t, err)
}

func TestPublisherMetrics_NilStaysNil(t *testing.T) {
	assert.Nil(t, publisherMetrics(nil))
	assert.NotNil(t, publisherMetrics(metrics.NewCollector(3, time.Second)))
}
