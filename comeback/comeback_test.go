package comeback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPredictor(now time.Time) *Predictor {
	p := New(NewDefaultConfig())
	p.now = func() time.Time { return now }
	return p
}

// eventsEvery builds n events spaced gapDays apart ending at last.
func eventsEvery(last time.Time, n, gapDays int) []EventRecord {
	events := make([]EventRecord, n)
	for i := 0; i < n; i++ {
		events[n-1-i] = EventRecord{
			OccurredAt: last.AddDate(0, 0, -i*gapDays),
			Impact:     ImpactMetrics{PeakIncrease: 2.5, VolumeIncrease: 5000, DurationDays: 10},
		}
	}
	return events
}

func TestPredictNextEventRegularGaps(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPredictor(now)

	// annual events keep the month preference aligned with the mean gap
	history := eventsEvery(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), 4, 365)
	pred := p.PredictNextEvent(history, nil, nil)

	expected := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 365)
	assert.WithinDuration(t, expected, pred.Date, 3*24*time.Hour)
	assert.Greater(t, pred.Confidence, 0.5)
	require.NotNil(t, pred.Impact)
	assert.NotEmpty(t, pred.Recommendations)
}

func TestPredictNextEventScatteredMonths(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPredictor(now)

	// occurrence months do not cluster, so the prediction stays at the
	// last event plus the mean gap
	last := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	history := eventsEvery(last, 4, 100)
	pred := p.PredictNextEvent(history, nil, nil)

	assert.Equal(t, last.AddDate(0, 0, 100), pred.Date)
	assert.Greater(t, pred.Confidence, 0.5)
}

func TestPredictNextEventSparseHistory(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPredictor(now)

	testData := map[string]struct {
		history []EventRecord
	}{
		"no events": {nil},
		"one event": {eventsEvery(now.AddDate(0, 0, -30), 1, 0)},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			pred := p.PredictNextEvent(td.history, nil, nil)
			assert.LessOrEqual(t, pred.Confidence, 0.2)
			assert.False(t, pred.Date.Before(now))
		})
	}
}

func TestPredictNextEventSocialPullsForward(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPredictor(now)
	history := eventsEvery(now.AddDate(0, 0, -10), 4, 90)

	quiet := p.PredictNextEvent(history, nil, nil)
	buzzing := p.PredictNextEvent(history, []SocialSignal{
		{Platform: "twitter", Strength: 1.0},
		{Platform: "tiktok", Strength: 1.0},
	}, nil)

	assert.True(t, buzzing.Date.Before(quiet.Date) || buzzing.Date.Equal(quiet.Date))
	assert.Greater(t, buzzing.Confidence, quiet.Confidence)
}

func TestProbability(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPredictor(now)
	history := eventsEvery(now, 5, 100)

	testData := map[string]struct {
		history       []EventRecord
		daysSinceLast int
		windowDays    int
		expectDefault bool
	}{
		"no history":    {nil, 50, 30, true},
		"single event":  {history[:1], 50, 30, true},
		"near mean gap": {history, 85, 30, false},
		"far from mean": {history, 5, 5, false},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			prob := p.Probability(td.history, td.daysSinceLast, td.windowDays)
			assert.GreaterOrEqual(t, prob, 0.0)
			assert.LessOrEqual(t, prob, 1.0)
			if td.expectDefault {
				assert.Equal(t, DefaultProbability, prob)
			}
		})
	}

	// a window straddling the mean gap scores far higher than a distant one
	near := p.Probability(history, 85, 30)
	far := p.Probability(history, 5, 5)
	assert.Greater(t, near, far)
}

func TestClassify(t *testing.T) {
	testData := map[string]struct {
		peak   float64
		volume float64
		tier   Tier
	}{
		"top":    {3.5, 20000, TierTop},
		"major":  {2.2, 500, TierMajor},
		"rising": {1.6, 100, TierRising},
		"new":    {1.1, 10, TierNew},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			history := []EventRecord{{
				OccurredAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
				Impact:     ImpactMetrics{PeakIncrease: td.peak, VolumeIncrease: td.volume},
			}}
			assert.Equal(t, td.tier, Classify(history))
		})
	}

	assert.Equal(t, TierNew, Classify(nil))
}

func TestImpactCurve(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPredictor(now)
	history := eventsEvery(now, 3, 100)

	impact := p.ImpactCurve(history)
	require.Len(t, impact.Timeline, 10)

	// gaussian peak lands on the configured peak day
	peakDay := 0
	for _, d := range impact.Timeline {
		if d.Multiplier > impact.Timeline[peakDay].Multiplier {
			peakDay = d.Day
		}
	}
	assert.Equal(t, p.cfg.PeakDay, peakDay)
	assert.Greater(t, impact.Timeline[peakDay].Multiplier, 1.5)

	// confidence decays and stays floored
	for i := 1; i < len(impact.Timeline); i++ {
		assert.LessOrEqual(t, impact.Timeline[i].Confidence, impact.Timeline[i-1].Confidence)
		assert.GreaterOrEqual(t, impact.Timeline[i].Confidence, p.cfg.MinConfidence)
	}
}

func TestImpactCurveNoHistory(t *testing.T) {
	p := newTestPredictor(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	impact := p.ImpactCurve(nil)

	assert.Len(t, impact.Timeline, p.cfg.DurationDays)
	assert.GreaterOrEqual(t, impact.ExpectedPeak, 1.0)
}

func TestOptimalTiming(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPredictor(now)

	t.Run("no history uses first scan offset", func(t *testing.T) {
		date := p.OptimalTiming(nil, nil)
		assert.Equal(t, now.AddDate(0, 0, 30), date)
	})

	t.Run("avoids high impact competitors", func(t *testing.T) {
		conflict := CompetitorEvent{
			Name:       "rival tour",
			Date:       now.AddDate(0, 0, 30),
			HighImpact: true,
		}
		date := p.OptimalTiming(nil, []CompetitorEvent{conflict})
		gap := date.Sub(conflict.Date)
		if gap < 0 {
			gap = -gap
		}
		assert.Greater(t, gap, 14*24*time.Hour)
	})

	t.Run("low impact competitors ignored", func(t *testing.T) {
		soft := CompetitorEvent{Date: now.AddDate(0, 0, 30)}
		date := p.OptimalTiming(nil, []CompetitorEvent{soft})
		assert.Equal(t, now.AddDate(0, 0, 30), date)
	})
}

func TestGapStats(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("regular gaps", func(t *testing.T) {
		gaps := newGapStats(eventsEvery(now, 4, 100))
		assert.InDelta(t, 100.0, gaps.MeanGap, 1e-9)
		assert.InDelta(t, 0.0, gaps.GapStd, 1e-9)
		assert.True(t, gaps.HasPreferredMonth)
	})

	t.Run("fewer than two events", func(t *testing.T) {
		gaps := newGapStats(nil)
		assert.InDelta(t, float64(DefaultGapDays), gaps.MeanGap, 1e-9)
		assert.False(t, gaps.HasPreferredMonth)
	})
}

func TestSignalAggregation(t *testing.T) {
	p := newTestPredictor(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	t.Run("social weighted by platform", func(t *testing.T) {
		assert.InDelta(t, 0.0, p.socialSignalStrength(nil), 1e-9)

		strength := p.socialSignalStrength([]SocialSignal{
			{Platform: "Twitter", Strength: 1.0},
			{Platform: "unknown", Strength: 1.0},
		})
		assert.Greater(t, strength, 0.0)
		assert.LessOrEqual(t, strength, 1.0)
	})

	t.Run("market readiness neutral when empty", func(t *testing.T) {
		assert.InDelta(t, 0.5, marketReadiness(nil), 1e-9)
	})
}
