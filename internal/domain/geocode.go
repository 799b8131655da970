package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding attempts to attach place details to an assessment event.
// If geocoder is nil the event is returned untouched. Lookup failures are
// logged and recorded in GeoSource; they never fail the event.
func EnrichWithGeocoding(ctx context.Context, event AssessmentEvent, geocoder Geocoder, logger *slog.Logger) AssessmentEvent {
	if geocoder == nil {
		return event
	}

	lat, lon := event.Features.Lat, event.Features.Lon
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		event.GeoSource = GeoSourceOriginal
		return event
	}

	result, err := geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"event_id", event.ID,
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		event.GeoSource = GeoSourceFailed
		return event
	}
	if result.FormattedAddress == "" {
		event.GeoSource = GeoSourceOriginal
		return event
	}

	event.FormattedAddress = result.FormattedAddress
	event.PlaceName = result.PlaceName
	event.GeoConfidence = result.Confidence
	event.GeoSource = GeoSourceReverse
	return event
}
