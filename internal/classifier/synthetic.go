package classifier

import "math/rand/v2"

// Range is a half-open interval [Min, Max) for uniform sampling.
type Range struct {
	Min float64
	Max float64
}

func (r Range) scale(u float64) float64 {
	return u*(r.Max-r.Min) + r.Min
}

// Synthetic feature ranges, in domain.FeatureNames order.
var (
	LatRange         = Range{Min: -90, Max: 90}
	LonRange         = Range{Min: -180, Max: 180}
	WindSpeedRange   = Range{Min: 0, Max: 100}
	TemperatureRange = Range{Min: -10, Max: 40}
)

// MaxThreatCount is the exclusive upper bound of the threat count feature.
const MaxThreatCount = 10

// Dataset is a labeled training set.
type Dataset struct {
	X [][]float64
	Y []int
}

// Positives returns the number of rows labeled 1.
func (d Dataset) Positives() int {
	n := 0
	for _, label := range d.Y {
		n += label
	}
	return n
}

// GenerateSynthetic draws rows of uniformly distributed features with
// independent coin-flip labels. Labels carry no relationship to features.
func GenerateSynthetic(rows int, rng *rand.Rand) Dataset {
	ds := Dataset{
		X: make([][]float64, rows),
		Y: make([]int, rows),
	}
	for i := range rows {
		ds.X[i] = []float64{
			LatRange.scale(rng.Float64()),
			LonRange.scale(rng.Float64()),
			WindSpeedRange.scale(rng.Float64()),
			TemperatureRange.scale(rng.Float64()),
			float64(rng.IntN(MaxThreatCount)),
		}
	}
	for i := range rows {
		ds.Y[i] = rng.IntN(2)
	}
	return ds
}
