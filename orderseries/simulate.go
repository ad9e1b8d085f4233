package orderseries

import (
	"math"
	"math/rand/v2"
	"time"
)

// Curve is a mutable demand curve used to build synthetic series for tests
// and examples.
type Curve []float64

// Flat generates a constant demand curve of n days.
func Flat(n int, val float64) Curve {
	y := make([]float64, n)
	for i := range y {
		y[i] = val
	}
	return Curve(y)
}

// WeekendBoost multiplies Saturday and Sunday values by factor.
func (c Curve) WeekendBoost(dates []time.Time, factor float64) Curve {
	for i := range c {
		switch dates[i].Weekday() {
		case time.Saturday, time.Sunday:
			c[i] *= factor
		}
	}
	return c
}

// Trend adds a linear slope per day.
func (c Curve) Trend(slopePerDay float64) Curve {
	for i := range c {
		c[i] += slopePerDay * float64(i)
	}
	return c
}

// Noise adds gaussian noise with the given scale.
func (c Curve) Noise(scale float64) Curve {
	for i := range c {
		c[i] += rand.NormFloat64() * scale
	}
	return c
}

// Spike elevates the curve with a gaussian bump centered offset days after
// at, emulating a comeback demand shock.
func (c Curve) Spike(dates []time.Time, at time.Time, peakMult float64, spreadDays float64) Curve {
	for i := range c {
		d := dates[i].Sub(at).Hours() / 24.0
		mult := 1.0 + (peakMult-1.0)*math.Exp(-d*d/(2.0*spreadDays*spreadDays))
		c[i] *= mult
	}
	return c
}

// Dates generates n consecutive days starting at start truncated to
// midnight UTC.
func Dates(n int, start time.Time) []time.Time {
	t := make([]time.Time, n)
	d := Day(start)
	for i := range t {
		t[i] = d.AddDate(0, 0, i)
	}
	return t
}

// Records builds daily records from an order curve, deriving submissions,
// revenue, and average price with stable ratios so conversion features are
// well defined.
func Records(dates []time.Time, orders Curve) []DailyRecord {
	records := make([]DailyRecord, len(dates))
	for i := range dates {
		n := int(math.Round(math.Max(orders[i], 0)))
		avgPrice := 25.0
		records[i] = DailyRecord{
			Date:            dates[i],
			OrderCount:      n,
			SubmissionCount: n + n/2,
			Revenue:         float64(n) * avgPrice,
			AvgPrice:        avgPrice,
			Category:        "default",
		}
	}
	return records
}
