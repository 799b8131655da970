package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
	"github.com/couchcryptid/storm-risk-predictor/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func newCached(t *testing.T, inner domain.Geocoder, size int) (*CachedGeocoder, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	cached, err := NewCachedGeocoder(inner, size, metrics)
	require.NoError(t, err)
	return cached, metrics
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{FormattedAddress: "Shinjuku, Tokyo, Japan", PlaceName: "Shinjuku"},
	}
	cached, metrics := newCached(t, inner, 10)

	r1, err := cached.ReverseGeocode(context.Background(), 35.67, 139.65)
	require.NoError(t, err)
	assert.Equal(t, "Shinjuku", r1.PlaceName)

	r2, err := cached.ReverseGeocode(context.Background(), 35.67, 139.65)
	require.NoError(t, err)
	assert.Equal(t, "Shinjuku", r2.PlaceName)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")))
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Somewhere"}}
	cached, _ := newCached(t, inner, 10)

	_, _ = cached.ReverseGeocode(context.Background(), 35.67, 139.65)
	_, _ = cached.ReverseGeocode(context.Background(), 30.2672, -97.7431)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached, _ := newCached(t, inner, 10)

	_, _ = cached.ReverseGeocode(context.Background(), 0.5, 0.5)
	_, _ = cached.ReverseGeocode(context.Background(), 0.5, 0.5)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, cached.Len())
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("timeout")}
	cached, _ := newCached(t, inner, 10)

	_, err := cached.ReverseGeocode(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Equal(t, 0, cached.Len())
}

func TestCachedGeocoder_Eviction(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "X"}}
	cached, _ := newCached(t, inner, 2)

	_, _ = cached.ReverseGeocode(context.Background(), 1, 1)
	_, _ = cached.ReverseGeocode(context.Background(), 2, 2)
	_, _ = cached.ReverseGeocode(context.Background(), 3, 3) // evicts (1,1)
	assert.Equal(t, 2, cached.Len())

	_, _ = cached.ReverseGeocode(context.Background(), 1, 1)
	assert.Equal(t, 4, inner.calls, "(1,1) should have been evicted")
}

func TestNewCachedGeocoder_InvalidSize(t *testing.T) {
	_, err := NewCachedGeocoder(&countingGeocoder{}, 0, observability.NewMetricsForTesting())
	require.Error(t, err)
}

func TestCacheKey_RoundsToMicrodegrees(t *testing.T) {
	assert.Equal(t, cacheKey(35.6700001, 139.65), cacheKey(35.67, 139.6500002))
}
