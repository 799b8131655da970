package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
)

// GeoTransformer implements Transformer with optional reverse geocoding.
type GeoTransformer struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewTransformer creates a GeoTransformer. Pass a nil geocoder to disable
// geocoding enrichment.
func NewTransformer(geocoder domain.Geocoder, logger *slog.Logger) *GeoTransformer {
	return &GeoTransformer{
		geocoder: geocoder,
		logger:   logger,
	}
}

func (t *GeoTransformer) Transform(ctx context.Context, event domain.AssessmentEvent) (domain.AssessmentEvent, error) {
	return domain.EnrichWithGeocoding(ctx, event, t.geocoder, t.logger), nil
}
