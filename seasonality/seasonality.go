// Package seasonality decomposes a daily order series into weekly and
// monthly multiplier tables, peak days, and a coarse trend label. Analyze is
// a pure function of its input and keeps no state between calls.
package seasonality

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/demandcast/demandcast/orderseries"
	"gonum.org/v1/gonum/stat"
)

var ErrEmptySeries = errors.New("empty series")

// Trend labels the direction of the most recent demand movement.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

const (
	trendWindow    = 30
	trendThreshold = 0.10
)

// Profile is the seasonal decomposition of one series. Multiplier 1 means
// average demand for that period, above 1 above average.
type Profile struct {
	WeeklyPattern  [7]float64  `json:"weekly_pattern"`
	MonthlyPattern [12]float64 `json:"monthly_pattern"`

	// PeakDays are the top-2 weekdays by demand multiplier.
	PeakDays [2]time.Weekday `json:"peak_days"`

	TrendDirection      Trend   `json:"trend_direction"`
	SeasonalityStrength float64 `json:"seasonality_strength"`
	TrendStrength       float64 `json:"trend_strength"`
	IrregularityScore   float64 `json:"irregularity_score"`
}

// WeekdayMultiplier returns the demand multiplier for a weekday.
func (p *Profile) WeekdayMultiplier(d time.Weekday) float64 {
	return p.WeeklyPattern[int(d)]
}

// MonthMultiplier returns the demand multiplier for a month.
func (p *Profile) MonthMultiplier(m time.Month) float64 {
	return p.MonthlyPattern[int(m)-1]
}

// Analyze computes the seasonal profile of the series.
func Analyze(series *orderseries.OrderSeries) (*Profile, error) {
	if series.Len() == 0 {
		return nil, ErrEmptySeries
	}

	y := series.Counts()
	overall := stat.Mean(y, nil)

	p := &Profile{}
	p.WeeklyPattern = bucketMultipliers7(series, overall)
	p.MonthlyPattern = bucketMultipliers12(series, overall)
	p.PeakDays = peakDays(p.WeeklyPattern)
	p.TrendDirection, p.TrendStrength = trendDirection(y)
	p.SeasonalityStrength = seasonalityStrength(p.WeeklyPattern)
	p.IrregularityScore = irregularity(series, p.WeeklyPattern, overall)
	return p, nil
}

func bucketMultipliers7(series *orderseries.OrderSeries, overall float64) [7]float64 {
	var sums, counts [7]float64
	for _, r := range series.Records {
		sums[r.Weekday()] += float64(r.OrderCount)
		counts[r.Weekday()]++
	}
	var out [7]float64
	for i := range out {
		out[i] = multiplier(sums[i], counts[i], overall)
	}
	return out
}

func bucketMultipliers12(series *orderseries.OrderSeries, overall float64) [12]float64 {
	var sums, counts [12]float64
	for _, r := range series.Records {
		sums[r.Month()] += float64(r.OrderCount)
		counts[r.Month()]++
	}
	var out [12]float64
	for i := range out {
		out[i] = multiplier(sums[i], counts[i], overall)
	}
	return out
}

func multiplier(sum, count, overall float64) float64 {
	if count == 0 || overall == 0 {
		return 1.0
	}
	return sum / count / overall
}

func peakDays(weekly [7]float64) [2]time.Weekday {
	idx := []int{0, 1, 2, 3, 4, 5, 6}
	sort.Slice(idx, func(i, j int) bool { return weekly[idx[i]] > weekly[idx[j]] })
	return [2]time.Weekday{time.Weekday(idx[0]), time.Weekday(idx[1])}
}

// trendDirection compares the mean of the most recent 30-day window to the
// preceding 30-day window. Fewer than 60 days is always stable.
func trendDirection(y []float64) (Trend, float64) {
	if len(y) < 2*trendWindow {
		return TrendStable, 0
	}
	recent := stat.Mean(y[len(y)-trendWindow:], nil)
	previous := stat.Mean(y[len(y)-2*trendWindow:len(y)-trendWindow], nil)
	if previous == 0 {
		return TrendStable, 0
	}
	change := (recent - previous) / previous
	strength := math.Min(math.Abs(change), 1.0)
	switch {
	case change > trendThreshold:
		return TrendIncreasing, strength
	case change < -trendThreshold:
		return TrendDecreasing, strength
	}
	return TrendStable, strength
}

// seasonalityStrength is the dispersion of the weekly multipliers around
// 1.0, capped to [0,1].
func seasonalityStrength(weekly [7]float64) float64 {
	sum := 0.0
	for _, m := range weekly {
		sum += (m - 1.0) * (m - 1.0)
	}
	return math.Min(math.Sqrt(sum/7.0), 1.0)
}

// irregularity is the residual coefficient of variation after removing the
// weekday pattern.
func irregularity(series *orderseries.OrderSeries, weekly [7]float64, overall float64) float64 {
	if overall == 0 {
		return 0
	}
	residuals := make([]float64, series.Len())
	for i, r := range series.Records {
		expected := overall * weekly[r.Weekday()]
		residuals[i] = float64(r.OrderCount) - expected
	}
	std := stat.StdDev(residuals, nil)
	if math.IsNaN(std) {
		return 0
	}
	return math.Min(std/overall, 1.0)
}
