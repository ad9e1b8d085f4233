package preprocess

import (
	"math"
	"sort"
)

const DefaultOutlierFactor = 1.5

// quartiles returns Q1, Q2, Q3 of the input. The slice is sorted in place.
func quartiles(values []float64) (float64, float64, float64) {
	sort.Float64s(values)
	return percentileSorted(values, 0.25), percentileSorted(values, 0.5), percentileSorted(values, 0.75)
}

func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ClipOutliers clips values outside [Q1 - k*IQR, Q3 + k*IQR] to the nearest
// bound. Values are clipped rather than removed so series length and date
// contiguity are preserved. Returns the number of clipped values.
//
// The operation is idempotent: a second pass over clipped output finds the
// same quartile bounds and changes nothing.
func ClipOutliers(values []float64, k float64) int {
	if len(values) < 4 {
		return 0
	}
	if k <= 0 {
		k = DefaultOutlierFactor
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	q1, _, q3 := quartiles(sorted)
	iqr := q3 - q1
	lower := q1 - k*iqr
	upper := q3 + k*iqr

	clipped := 0
	for i, v := range values {
		switch {
		case v < lower:
			values[i] = lower
			clipped++
		case v > upper:
			values[i] = upper
			clipped++
		}
	}
	return clipped
}
