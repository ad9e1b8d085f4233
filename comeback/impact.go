package comeback

import (
	"math"
)

// Tier classifies an entity by its historical impact magnitude.
type Tier string

const (
	TierTop    Tier = "top"
	TierMajor  Tier = "major"
	TierRising Tier = "rising"
	TierNew    Tier = "new"
)

// tier thresholds on average historical peak increase and volume increase
const (
	topPeakThreshold    = 3.0
	topVolumeThreshold  = 10000
	majorPeakThreshold  = 2.0
	risingPeakThreshold = 1.5
)

var tierMultipliers = map[Tier]float64{
	TierTop:    1.5,
	TierMajor:  1.2,
	TierRising: 1.0,
	TierNew:    0.8,
}

var productTypeMultipliers = map[string]float64{
	"album":      1.3,
	"lightstick": 1.1,
	"merch":      1.0,
	"photocard":  0.9,
}

// Classify buckets the entity into a tier from its historical averages. An
// entity with no event history has no track record and is always TierNew.
func Classify(history []EventRecord) Tier {
	if len(history) == 0 {
		return TierNew
	}
	avg := averageImpact(history)
	switch {
	case avg.PeakIncrease >= topPeakThreshold && avg.VolumeIncrease >= topVolumeThreshold:
		return TierTop
	case avg.PeakIncrease >= majorPeakThreshold:
		return TierMajor
	case avg.PeakIncrease >= risingPeakThreshold:
		return TierRising
	}
	return TierNew
}

// ImpactCurve builds the day-indexed multiplier and confidence timeline for
// the entity's next event. The multiplier follows a gaussian shape centered
// at the configured peak day, scaled by the historical peak increase and the
// tier and product-type multipliers. Per-day confidence decays linearly from
// the anchor, floored at the minimum.
func (p *Predictor) ImpactCurve(history []EventRecord) *ImpactForecast {
	avg := averageImpact(history)
	tier := Classify(history)

	scale := tierMultipliers[tier]
	if m, ok := productTypeMultipliers[p.cfg.ProductType]; ok {
		scale *= m
	}

	peak := math.Max(avg.PeakIncrease*scale, 1.0)
	duration := avg.DurationDays
	if duration <= 0 {
		duration = p.cfg.DurationDays
	}

	timeline := make([]ImpactDay, duration)
	peakDay := float64(p.cfg.PeakDay)
	spread := p.cfg.SpreadDays
	for d := 0; d < duration; d++ {
		delta := float64(d) - peakDay
		mult := 1.0 + (peak-1.0)*math.Exp(-delta*delta/(2*spread*spread))

		conf := p.cfg.ConfidenceAnchor - p.cfg.ConfidenceDecay*float64(d)
		if conf < p.cfg.MinConfidence {
			conf = p.cfg.MinConfidence
		}

		timeline[d] = ImpactDay{Day: d, Multiplier: mult, Confidence: conf}
	}

	return &ImpactForecast{
		ExpectedPeak:         peak,
		ExpectedDurationDays: duration,
		CategoryShare:        avg.CategoryShare,
		Timeline:             timeline,
	}
}
