package forecast

import (
	"time"

	"github.com/demandcast/demandcast/orderseries"
	"github.com/demandcast/demandcast/seasonality"
	"github.com/google/uuid"
)

// heuristicForecast is the degraded path: trailing-window mean scaled by the
// weekday multiplier. Used when no model is trained or the model path fails.
func (o *Orchestrator) heuristicForecast(in Input, horizon int) *Result {
	series, err := orderseries.New(in.Records)
	if err != nil {
		return o.emptyForecast(horizon)
	}

	counts := series.Counts()
	window := o.opt.HeuristicWindow
	if len(counts) > window {
		counts = counts[len(counts)-window:]
	}
	base := mean(counts)

	profile := in.Seasonal
	if profile == nil {
		if p, err := seasonality.Analyze(series); err == nil {
			profile = p
		}
	}

	lastDate := series.Records[series.Len()-1].Date
	confidence := o.opt.ConfidenceBase / 2
	if confidence < o.opt.MinConfidence {
		confidence = o.opt.MinConfidence
	}

	days := make([]Day, 0, horizon)
	for h := 0; h < horizon; h++ {
		date := lastDate.AddDate(0, 0, h+1)
		value := base
		if profile != nil {
			value *= profile.WeekdayMultiplier(date.Weekday())
		}
		for _, e := range in.Events {
			value *= e.multiplierOn(date)
		}
		if value < 0 {
			value = 0
		}
		days = append(days, Day{Date: date, Value: value, Confidence: confidence})
	}

	return &Result{
		ID:          uuid.New(),
		GeneratedAt: time.Now(),
		Days:        days,
		Degraded:    true,
		Method:      "heuristic",
	}
}

// emptyForecast covers the no-usable-history case with zero values at floor
// confidence so callers always receive a full horizon.
func (o *Orchestrator) emptyForecast(horizon int) *Result {
	start := orderseries.Day(time.Now().UTC())
	days := make([]Day, 0, horizon)
	for h := 0; h < horizon; h++ {
		days = append(days, Day{
			Date:       start.AddDate(0, 0, h+1),
			Confidence: o.opt.MinConfidence,
		})
	}
	return &Result{
		ID:          uuid.New(),
		GeneratedAt: time.Now(),
		Days:        days,
		Degraded:    true,
		Method:      "heuristic",
	}
}
