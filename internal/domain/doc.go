// Package domain models the inputs and outputs of a storm risk assessment.
//
// # Feature Vector
//
// A prediction takes five scalar features, always assembled in this column
// order (see [FeatureVector.Row]):
//
//	0  lat                degrees, intended range [-90, 90]
//	1  lon                degrees, intended range [-180, 180]
//	2  wind_speed         intended range [0, 100]
//	3  temperature        degrees Celsius, intended range [-10, 40]
//	4  last_threat_count  prior threat events, integer in [0, 9]
//
// The intended ranges describe the synthetic training distribution only.
// Nothing rejects values outside them; the classifier simply extrapolates.
//
// # Risk Levels
//
// The classifier returns the probability that a threat event occurs in the
// next time window. [ClassifyScore] buckets it with fixed thresholds:
//
//	score >  0.7        HIGH
//	0.3 < score <= 0.7  MEDIUM
//	score <= 0.3        LOW
//
// Boundaries belong to the lower bucket, so 0.7 is MEDIUM and 0.3 is LOW.
//
// # Assessment Events
//
// Every successful prediction can be emitted as an [AssessmentEvent] with a
// random UUID and the assessment time. Events are optionally enriched with
// reverse geocoding (see [EnrichWithGeocoding]) before they leave the service.
package domain
