// Package predictor scores feature vectors with the startup-trained classifier.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
	"github.com/couchcryptid/storm-risk-predictor/internal/observability"
)

// ErrNotReady is returned when no classifier has been installed.
var ErrNotReady = errors.New("model not initialized")

// EventSink accepts assessment events for asynchronous publishing.
// Enqueue must not block; it reports false when the event was dropped.
type EventSink interface {
	Enqueue(event domain.AssessmentEvent) bool
}

// Service wraps a fitted classifier. A Service built with a nil classifier
// stays not ready for its whole lifetime.
type Service struct {
	classifier domain.Classifier
	sink       EventSink
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Service. sink may be nil to disable assessment events.
func New(classifier domain.Classifier, sink EventSink, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if classifier != nil {
		metrics.ModelReady.Set(1)
	} else {
		metrics.ModelReady.Set(0)
	}
	return &Service{
		classifier: classifier,
		sink:       sink,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a classifier is installed.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.classifier == nil {
		return ErrNotReady
	}
	return nil
}

// Predict scores one feature vector. It is read-only with respect to the
// classifier and safe to call concurrently.
func (s *Service) Predict(ctx context.Context, features domain.FeatureVector) (domain.Assessment, error) {
	if s.classifier == nil {
		s.metrics.PredictionErrors.WithLabelValues("not_ready").Inc()
		return domain.Assessment{}, ErrNotReady
	}

	start := time.Now()
	score, err := s.classifier.PredictProba(features.Row())
	s.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.PredictionErrors.WithLabelValues("model").Inc()
		return domain.Assessment{}, fmt.Errorf("predict proba: %w", err)
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		s.metrics.PredictionErrors.WithLabelValues("model").Inc()
		return domain.Assessment{}, fmt.Errorf("classifier returned out-of-range probability %v", score)
	}

	assessment := domain.NewAssessment(score)
	s.metrics.Predictions.WithLabelValues(string(assessment.Level)).Inc()

	s.logger.DebugContext(ctx, "risk assessed",
		"lat", features.Lat,
		"lon", features.Lon,
		"risk_score", assessment.Score,
		"risk_level", assessment.Level,
	)

	if s.sink != nil && !s.sink.Enqueue(domain.NewAssessmentEvent(features, assessment)) {
		s.logger.DebugContext(ctx, "assessment event dropped, queue full")
	}

	return assessment, nil
}
