package seasonality

import (
	"testing"
	"time"

	"github.com/demandcast/demandcast/orderseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeries(t *testing.T, curve orderseries.Curve, dates []time.Time) *orderseries.OrderSeries {
	t.Helper()
	series, err := orderseries.New(orderseries.Records(dates, curve))
	require.NoError(t, err)
	return series
}

func TestAnalyzeFlat(t *testing.T) {
	dates := orderseries.Dates(84, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	profile, err := Analyze(newSeries(t, orderseries.Flat(84, 40), dates))
	require.NoError(t, err)

	for d := 0; d < 7; d++ {
		assert.InDelta(t, 1.0, profile.WeeklyPattern[d], 1e-9)
	}
	assert.Equal(t, TrendStable, profile.TrendDirection)
	assert.InDelta(t, 0.0, profile.SeasonalityStrength, 1e-9)
	assert.InDelta(t, 0.0, profile.IrregularityScore, 1e-9)
}

func TestAnalyzeWeekendBoost(t *testing.T) {
	dates := orderseries.Dates(84, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	curve := orderseries.Flat(84, 40).WeekendBoost(dates, 2.0)
	profile, err := Analyze(newSeries(t, curve, dates))
	require.NoError(t, err)

	peaks := map[time.Weekday]bool{
		profile.PeakDays[0]: true,
		profile.PeakDays[1]: true,
	}
	assert.True(t, peaks[time.Saturday], "saturday should be a peak day")
	assert.True(t, peaks[time.Sunday], "sunday should be a peak day")

	assert.Greater(t, profile.WeekdayMultiplier(time.Saturday), 1.5)
	assert.Greater(t, profile.WeekdayMultiplier(time.Sunday), 1.5)
	assert.Less(t, profile.WeekdayMultiplier(time.Wednesday), 1.0)
	assert.Greater(t, profile.SeasonalityStrength, 0.1)
}

func TestTrendDirection(t *testing.T) {
	testData := map[string]struct {
		curve     orderseries.Curve
		days      int
		direction Trend
	}{
		"increasing": {
			orderseries.Flat(90, 20).Trend(1.0),
			90,
			TrendIncreasing,
		},
		"decreasing": {
			orderseries.Flat(90, 120).Trend(-1.0),
			90,
			TrendDecreasing,
		},
		"flat": {
			orderseries.Flat(90, 50),
			90,
			TrendStable,
		},
		"too short is stable": {
			orderseries.Flat(45, 20).Trend(2.0),
			45,
			TrendStable,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			dates := orderseries.Dates(td.days, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
			profile, err := Analyze(newSeries(t, td.curve, dates))
			require.NoError(t, err)
			assert.Equal(t, td.direction, profile.TrendDirection)
		})
	}
}

func TestMonthMultiplier(t *testing.T) {
	// six months of data with a doubled March
	dates := orderseries.Dates(181, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	curve := orderseries.Flat(181, 30)
	for i, d := range dates {
		if d.Month() == time.March {
			curve[i] *= 2
		}
	}
	profile, err := Analyze(newSeries(t, curve, dates))
	require.NoError(t, err)

	assert.Greater(t, profile.MonthMultiplier(time.March), 1.3)
	assert.Less(t, profile.MonthMultiplier(time.January), 1.0)
	// months without data stay neutral
	assert.InDelta(t, 1.0, profile.MonthMultiplier(time.December), 1e-9)
}

func TestAnalyzeEmpty(t *testing.T) {
	_, err := Analyze(&orderseries.OrderSeries{})
	assert.ErrorIs(t, err, ErrEmptySeries)
}
