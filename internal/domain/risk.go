package domain

// RiskLevel is the categorical bucket derived from a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Score thresholds. A score equal to a threshold falls into the lower bucket.
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.3
)

// Classifier estimates the positive-class probability for a feature row.
// Implementations must be safe for concurrent use.
type Classifier interface {
	PredictProba(row []float64) (float64, error)
}

// Assessment is the result of scoring one feature vector.
type Assessment struct {
	Score float64   `json:"risk_score"`
	Level RiskLevel `json:"risk_level"`
}

// ClassifyScore maps a probability to its risk level.
func ClassifyScore(score float64) RiskLevel {
	switch {
	case score > HighThreshold:
		return RiskHigh
	case score > MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// NewAssessment pairs a score with its derived level.
func NewAssessment(score float64) Assessment {
	return Assessment{Score: score, Level: ClassifyScore(score)}
}
