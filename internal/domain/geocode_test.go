package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tokyoEvent() AssessmentEvent {
	return AssessmentEvent{
		ID:       "evt-1",
		Features: FeatureVector{Lat: 35.67, Lon: 139.65, WindSpeed: 12, Temperature: 18, LastThreatCount: 3},
	}
}

// --- tests ---

func TestEnrichWithGeocoding_NilGeocoder(t *testing.T) {
	result := EnrichWithGeocoding(context.Background(), tokyoEvent(), nil, discardLogger())

	assert.Empty(t, result.GeoSource)
	assert.Empty(t, result.FormattedAddress)
}

func TestEnrichWithGeocoding_ReverseGeocode(t *testing.T) {
	geo := &mockGeocoder{
		result: GeocodingResult{
			FormattedAddress: "Shinjuku, Tokyo, Japan",
			PlaceName:        "Shinjuku",
			Confidence:       0.98,
		},
	}

	result := EnrichWithGeocoding(context.Background(), tokyoEvent(), geo, discardLogger())

	assert.Equal(t, "Shinjuku, Tokyo, Japan", result.FormattedAddress)
	assert.Equal(t, "Shinjuku", result.PlaceName)
	assert.Equal(t, 0.98, result.GeoConfidence)
	assert.Equal(t, GeoSourceReverse, result.GeoSource)
	assert.Equal(t, 1, geo.calls)
}

func TestEnrichWithGeocoding_Error_GracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("rate limited")}

	result := EnrichWithGeocoding(context.Background(), tokyoEvent(), geo, discardLogger())

	assert.Equal(t, GeoSourceFailed, result.GeoSource)
	assert.Empty(t, result.FormattedAddress)
	assert.Equal(t, 35.67, result.Features.Lat) // original features preserved
}

func TestEnrichWithGeocoding_EmptyResult(t *testing.T) {
	geo := &mockGeocoder{}

	result := EnrichWithGeocoding(context.Background(), tokyoEvent(), geo, discardLogger())

	assert.Equal(t, GeoSourceOriginal, result.GeoSource)
	assert.Equal(t, 1, geo.calls)
}

func TestEnrichWithGeocoding_OutOfRangeCoordinatesSkipLookup(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{FormattedAddress: "nowhere"}}
	event := tokyoEvent()
	event.Features.Lat = 123.4

	result := EnrichWithGeocoding(context.Background(), event, geo, discardLogger())

	assert.Equal(t, GeoSourceOriginal, result.GeoSource)
	assert.Equal(t, 0, geo.calls)
}
