package domain

import (
	"time"

	"github.com/google/uuid"
)

// Geo source values recorded on enriched events.
const (
	GeoSourceReverse  = "reverse"
	GeoSourceOriginal = "original"
	GeoSourceFailed   = "failed"
)

// AssessmentEvent records a completed prediction for downstream consumers.
type AssessmentEvent struct {
	ID         string        `json:"id"`
	Features   FeatureVector `json:"features"`
	RiskScore  float64       `json:"risk_score"`
	RiskLevel  RiskLevel     `json:"risk_level"`
	AssessedAt time.Time     `json:"assessed_at"`

	// Geocoding enrichment fields.
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "reverse", "original", "failed"
}

// NewAssessmentEvent stamps an assessment with a fresh ID and the current time.
func NewAssessmentEvent(features FeatureVector, a Assessment) AssessmentEvent {
	return AssessmentEvent{
		ID:         uuid.NewString(),
		Features:   features,
		RiskScore:  a.Score,
		RiskLevel:  a.Level,
		AssessedAt: clock.Now().UTC(),
	}
}
