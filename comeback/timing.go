package comeback

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultProbability is returned for entities with fewer than two
	// historical events.
	DefaultProbability = 0.1

	timingScanStartDays = 30
	timingScanEndDays   = 180
	timingScanStepDays  = 7
	timingFallbackDays  = 90
)

// Probability scores the chance of an event inside the window
// [daysSinceLast, daysSinceLast+windowDays], modeling inter-event gaps as
// approximately normal. Entities with fewer than two events get the low
// fixed default.
func (p *Predictor) Probability(history []EventRecord, daysSinceLast, windowDays int) float64 {
	if len(history) < 2 {
		return DefaultProbability
	}

	gaps := newGapStats(history)
	sigma := gaps.GapStd
	// a degenerate spread still needs a usable distribution
	if sigma < 1 {
		sigma = math.Max(gaps.MeanGap*0.1, 1)
	}

	dist := distuv.Normal{Mu: gaps.MeanGap, Sigma: sigma}
	prob := dist.CDF(float64(daysSinceLast+windowDays)) - dist.CDF(float64(daysSinceLast))
	return clamp01(prob)
}

// CompetitorEvent is a known event from a competing entity used to avoid
// release-date conflicts.
type CompetitorEvent struct {
	Name       string    `json:"name"`
	Date       time.Time `json:"date"`
	HighImpact bool      `json:"high_impact"`
}

// OptimalTiming scans forward 30 to 180 days at weekly granularity, skips
// candidates inside the exclusion window around high-impact competitor
// events, and returns the first candidate in a historically high-demand
// month. Falls back to a fixed 90-day default when nothing qualifies.
func (p *Predictor) OptimalTiming(history []EventRecord, competitors []CompetitorEvent) time.Time {
	now := p.now()
	highDemand := highDemandMonths(history)
	exclusion := time.Duration(p.cfg.ExclusionWindowDays) * 24 * time.Hour

	for offset := timingScanStartDays; offset <= timingScanEndDays; offset += timingScanStepDays {
		candidate := now.AddDate(0, 0, offset)
		if conflicts(candidate, competitors, exclusion) {
			continue
		}
		if highDemand[candidate.Month()] {
			return candidate
		}
	}
	return now.AddDate(0, 0, timingFallbackDays)
}

func conflicts(candidate time.Time, competitors []CompetitorEvent, window time.Duration) bool {
	for _, c := range competitors {
		if !c.HighImpact {
			continue
		}
		delta := candidate.Sub(c.Date)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			return true
		}
	}
	return false
}

// highDemandMonths marks months with at least one historical event; with no
// usable history every month qualifies.
func highDemandMonths(history []EventRecord) map[time.Month]bool {
	months := make(map[time.Month]bool)
	for _, e := range history {
		months[e.OccurredAt.Month()] = true
	}
	if len(months) == 0 {
		for m := time.January; m <= time.December; m++ {
			months[m] = true
		}
	}
	return months
}
