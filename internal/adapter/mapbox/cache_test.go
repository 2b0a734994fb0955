package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	forwardCalls int
	result       domain.GeocodingResult
	err          error
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _, _ string) (domain.GeocodingResult, error) {
	m.forwardCalls++
	return m.result, m.err
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_ForwardCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{Lat: 5.57, Lon: -0.24, PlaceName: "Kaneshie", FormattedAddress: "Kaneshie, Accra, Ghana"},
	}
	metrics := testMetrics()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.ForwardGeocode(context.Background(), "Kaneshie First Light", "Greater Accra, Ghana")
	require.NoError(t, err)
	assert.Equal(t, "Kaneshie", r1.PlaceName)

	r2, err := cached.ForwardGeocode(context.Background(), "Kaneshie First Light", "Greater Accra, Ghana")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 1, inner.forwardCalls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{PlaceName: "Place", FormattedAddress: "Place, Ghana"},
	}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ForwardGeocode(context.Background(), "Achimota", "Greater Accra, Ghana")
	_, _ = cached.ForwardGeocode(context.Background(), "Weija", "Greater Accra, Ghana")
	_, _ = cached.ForwardGeocode(context.Background(), "Weija", "Central, Ghana")

	assert.Equal(t, 3, inner.forwardCalls)
}

func TestCachedGeocoder_EmptyAndErrorsNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ForwardGeocode(context.Background(), "Nowhere", "")
	_, _ = cached.ForwardGeocode(context.Background(), "Nowhere", "")
	assert.Equal(t, 2, inner.forwardCalls)

	inner.err = errors.New("timeout")
	_, err := cached.ForwardGeocode(context.Background(), "Nowhere", "")
	require.Error(t, err)
	assert.Equal(t, 3, inner.forwardCalls)
}

func TestCachedGeocoder_Eviction(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Accra"}}
	cached := NewCachedGeocoder(inner, 1, testMetrics())

	_, _ = cached.ForwardGeocode(context.Background(), "La", "")
	_, _ = cached.ForwardGeocode(context.Background(), "Kasoa", "") // evicts "La"
	_, _ = cached.ForwardGeocode(context.Background(), "La", "")

	assert.Equal(t, 3, inner.forwardCalls)
}
