// Package comeback predicts the timing and demand impact of comeback
// events (release or announcement driven demand shocks) from sparse event
// histories and external signal readings.
package comeback

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoHistory = errors.New("no event history")
)

// ImpactMetrics are the observed effects of one past event.
type ImpactMetrics struct {
	// PeakIncrease is the peak order increase ratio relative to baseline,
	// e.g. 2.5 means demand peaked at 2.5x.
	PeakIncrease float64 `json:"peak_increase"`

	DurationDays   int                `json:"duration_days"`
	VolumeIncrease float64            `json:"volume_increase"`
	CategoryShare  map[string]float64 `json:"category_share"`
}

// EventRecord is an immutable historical comeback event.
type EventRecord struct {
	OccurredAt  time.Time     `json:"occurred_at"`
	AnnouncedAt time.Time     `json:"announced_at"`
	Categories  []string      `json:"categories"`
	Impact      ImpactMetrics `json:"impact"`
}

// SocialSignal is a normalized per-platform buzz reading in [0,1].
type SocialSignal struct {
	Platform string  `json:"platform"`
	Strength float64 `json:"strength"`
}

// MarketIndicator is an external market-readiness reading.
type MarketIndicator struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ImpactDay is one day of a predicted impact timeline.
type ImpactDay struct {
	Day        int     `json:"day"`
	Multiplier float64 `json:"multiplier"`
	Confidence float64 `json:"confidence"`
}

// ImpactForecast is a predicted demand-shock profile. It is created per
// prediction call and not persisted by the engine.
type ImpactForecast struct {
	ExpectedPeak         float64            `json:"expected_peak"`
	ExpectedDurationDays int                `json:"expected_duration_days"`
	CategoryShare        map[string]float64 `json:"category_share"`
	Timeline             []ImpactDay        `json:"timeline"`
}

// Prediction is the output of PredictNextEvent.
type Prediction struct {
	Date            time.Time       `json:"date"`
	Confidence      float64         `json:"confidence"`
	Impact          *ImpactForecast `json:"impact"`
	Recommendations []string        `json:"recommendations"`
}

const (
	// DefaultGapDays is the wide-gap assumption applied when fewer than two
	// historical events exist.
	DefaultGapDays = 180

	// confidence weights per signal group
	weightConsistency = 0.4
	weightSeasonality = 0.3
	weightSocial      = 0.2
	weightMarket      = 0.1

	lowConfidence = 0.2

	socialPullForwardDays = 30
	marketShiftDays       = 15
)

// Config is the predictor configuration surface.
type Config struct {
	// PeakDay is the day offset at which the impact curve peaks.
	PeakDay int `yaml:"peak_day" json:"peak_day"`

	// SpreadDays controls the gaussian width of the impact curve.
	SpreadDays float64 `yaml:"spread_days" json:"spread_days"`

	// DurationDays is the default impact duration when history has none.
	DurationDays int `yaml:"duration_days" json:"duration_days"`

	ConfidenceAnchor float64 `yaml:"confidence_anchor" json:"confidence_anchor"`
	ConfidenceDecay  float64 `yaml:"confidence_decay" json:"confidence_decay"`
	MinConfidence    float64 `yaml:"min_confidence" json:"min_confidence"`

	// PlatformWeights weight per-platform social signals; unknown platforms
	// fall back to DefaultPlatformWeight.
	PlatformWeights       map[string]float64 `yaml:"platform_weights" json:"platform_weights"`
	DefaultPlatformWeight float64            `yaml:"default_platform_weight" json:"default_platform_weight"`

	// ExclusionWindowDays keeps optimal-timing candidates away from
	// high-impact competitor events.
	ExclusionWindowDays int `yaml:"exclusion_window_days" json:"exclusion_window_days"`

	// ProductType scales the impact curve, e.g. "album" vs "merch".
	ProductType string `yaml:"product_type" json:"product_type"`
}

// NewDefaultConfig returns the default predictor configuration.
func NewDefaultConfig() Config {
	return Config{
		PeakDay:          3,
		SpreadDays:       2.0,
		DurationDays:     14,
		ConfidenceAnchor: 0.9,
		ConfidenceDecay:  0.05,
		MinConfidence:    0.3,
		PlatformWeights: map[string]float64{
			"twitter":   0.35,
			"instagram": 0.25,
			"tiktok":    0.20,
			"youtube":   0.20,
		},
		DefaultPlatformWeight: 0.05,
		ExclusionWindowDays:   14,
		ProductType:           "merch",
	}
}

// Predictor forecasts the next comeback event for one entity. Instances are
// stateless beyond configuration and safe for reuse across entities.
type Predictor struct {
	cfg Config

	// now is swappable for tests.
	now func() time.Time
}

func New(cfg Config) *Predictor {
	def := NewDefaultConfig()
	if cfg.PeakDay <= 0 {
		cfg.PeakDay = def.PeakDay
	}
	if cfg.SpreadDays <= 0 {
		cfg.SpreadDays = def.SpreadDays
	}
	if cfg.DurationDays <= 0 {
		cfg.DurationDays = def.DurationDays
	}
	if cfg.ConfidenceAnchor <= 0 {
		cfg.ConfidenceAnchor = def.ConfidenceAnchor
	}
	if cfg.ConfidenceDecay <= 0 {
		cfg.ConfidenceDecay = def.ConfidenceDecay
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if len(cfg.PlatformWeights) == 0 {
		cfg.PlatformWeights = def.PlatformWeights
	}
	if cfg.DefaultPlatformWeight <= 0 {
		cfg.DefaultPlatformWeight = def.DefaultPlatformWeight
	}
	if cfg.ExclusionWindowDays <= 0 {
		cfg.ExclusionWindowDays = def.ExclusionWindowDays
	}
	return &Predictor{cfg: cfg, now: time.Now}
}

// PredictNextEvent predicts the next event date, a confidence score, and the
// expected impact profile. With zero or one historical event the output is a
// degraded default rather than an error.
func (p *Predictor) PredictNextEvent(history []EventRecord, social []SocialSignal, market []MarketIndicator) *Prediction {
	gaps := newGapStats(history)
	socialStrength := p.socialSignalStrength(social)
	readiness := marketReadiness(market)

	date := p.predictDate(history, gaps, socialStrength, readiness)
	confidence := clamp01(
		weightConsistency*math.Min(gaps.Consistency, 1.0) +
			weightSeasonality*math.Abs(gaps.SeasonalityScore) +
			weightSocial*socialStrength +
			weightMarket*readiness,
	)
	if len(history) < 2 {
		confidence = math.Min(confidence, lowConfidence)
	}

	impact := p.ImpactCurve(history)

	return &Prediction{
		Date:            date,
		Confidence:      confidence,
		Impact:          impact,
		Recommendations: p.recommendations(date, confidence, impact, gaps),
	}
}

// predictDate starts from lastEvent + meanGap and applies the month
// preference, social pull-forward, and market shift adjustments.
func (p *Predictor) predictDate(history []EventRecord, gaps gapStats, socialStrength, readiness float64) time.Time {
	base := p.now()
	if last, ok := lastEvent(history); ok {
		base = last.OccurredAt
	}
	date := base.AddDate(0, 0, int(math.Round(gaps.MeanGap)))

	// shift toward the preferred month only when events actually cluster
	// there; scattered histories keep the plain gap projection
	if gaps.HasPreferredMonth && gaps.SeasonalityScore > 0 && date.Month() != gaps.PreferredMonth {
		date = shiftTowardMonth(date, gaps.PreferredMonth)
	}

	// strong social buzz pulls the date closer
	date = date.AddDate(0, 0, -int(math.Round(socialPullForwardDays*socialStrength)))

	// market readiness shifts up to +/-15 days around neutral
	date = date.AddDate(0, 0, int(math.Round(2*marketShiftDays*(readiness-0.5))))

	if now := p.now(); date.Before(now) {
		date = now.AddDate(0, 0, 1)
	}
	return date
}

func (p *Predictor) recommendations(date time.Time, confidence float64, impact *ImpactForecast, gaps gapStats) []string {
	recs := make([]string, 0, 3)
	leadDays := int(date.Sub(p.now()).Hours() / 24)
	if impact.ExpectedPeak > 1.5 {
		recs = append(recs, fmt.Sprintf("expect a %.1fx demand peak; scale inventory %d days ahead", impact.ExpectedPeak, minInt(leadDays, 21)))
	}
	if confidence < 0.4 {
		recs = append(recs, "low prediction confidence; re-evaluate when new signals arrive")
	}
	if gaps.HasPreferredMonth {
		recs = append(recs, fmt.Sprintf("historical events cluster in %s", gaps.PreferredMonth))
	}
	return recs
}

func lastEvent(history []EventRecord) (EventRecord, bool) {
	if len(history) == 0 {
		return EventRecord{}, false
	}
	last := history[0]
	for _, e := range history[1:] {
		if e.OccurredAt.After(last.OccurredAt) {
			last = e
		}
	}
	return last, true
}

// shiftTowardMonth moves the date to the same day in the target month,
// choosing the occurrence nearest to the original date.
func shiftTowardMonth(date time.Time, target time.Month) time.Time {
	diff := int(target) - int(date.Month())
	if diff > 6 {
		diff -= 12
	}
	if diff < -6 {
		diff += 12
	}
	return date.AddDate(0, diff, 0)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
