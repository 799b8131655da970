package domain

// FeatureCount is the width of a feature row.
const FeatureCount = 5

// FeatureNames lists the feature columns in row order.
var FeatureNames = [FeatureCount]string{"lat", "lon", "wind_speed", "temperature", "last_threat_count"}

// FeatureVector holds the weather-like inputs for one prediction.
type FeatureVector struct {
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	WindSpeed       float64 `json:"wind_speed"`
	Temperature     float64 `json:"temperature"`
	LastThreatCount int     `json:"last_threat_count"`
}

// Row returns the features in training column order.
func (f FeatureVector) Row() []float64 {
	return []float64{
		f.Lat,
		f.Lon,
		f.WindSpeed,
		f.Temperature,
		float64(f.LastThreatCount),
	}
}
