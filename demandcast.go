// Package demandcast forecasts short-term buyer demand for group-order
// merchandise campaigns and predicts the timing and magnitude of demand
// shocks from comeback events.
package demandcast

import (
	"errors"
	"fmt"
	"time"

	"github.com/demandcast/demandcast/comeback"
	"github.com/demandcast/demandcast/forecast"
	"github.com/demandcast/demandcast/orderseries"
	"github.com/demandcast/demandcast/seasonality"
	"github.com/demandcast/demandcast/trainer"
)

var (
	ErrClosed    = errors.New("engine is closed")
	ErrNoHistory = errors.New("no history has been fit")
)

// Engine ties the forecasting orchestrator, seasonality analyzer, and
// comeback predictor together for one entity. An Engine is owned by its
// caller and is not safe for concurrent use.
type Engine struct {
	opt *Options

	orchestrator *forecast.Orchestrator
	predictor    *comeback.Predictor

	history []orderseries.DailyRecord
	profile *seasonality.Profile
	lastFit *forecast.TrainingResult

	closed bool
}

// New creates a new Engine using the provided options. If no options are
// provided a default is used.
func New(opt *Options) *Engine {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	return &Engine{
		opt:          opt,
		orchestrator: forecast.New(opt.Forecast),
		predictor:    comeback.New(opt.Comeback),
	}
}

// Fit trains the demand model on the given daily history and refreshes the
// seasonal profile. A failed training run keeps the engine usable on the
// heuristic path.
func (e *Engine) Fit(records []orderseries.DailyRecord) (*forecast.TrainingResult, error) {
	if e.closed {
		return nil, ErrClosed
	}

	series, err := orderseries.New(records)
	if err != nil {
		return nil, fmt.Errorf("unable to build order series, %w", err)
	}
	e.history = series.Records

	if profile, err := seasonality.Analyze(series); err == nil {
		e.profile = profile
	}

	res, err := e.orchestrator.Train(series.Records)
	if err != nil {
		return res, fmt.Errorf("unable to train demand model, %w", err)
	}
	e.lastFit = res
	return res, nil
}

// Tune runs a hyperparameter grid search over the history and adopts the
// best configuration for the next Fit.
func (e *Engine) Tune(records []orderseries.DailyRecord, grid trainer.Grid) (*trainer.OptimizeResult, error) {
	if e.closed {
		return nil, ErrClosed
	}
	series, err := orderseries.New(records)
	if err != nil {
		return nil, fmt.Errorf("unable to build order series, %w", err)
	}
	return e.orchestrator.Tune(series.Records, grid)
}

// Forecast generates a demand forecast over the given horizon, folding in
// any provided event impacts. Requires a prior Fit for history context.
func (e *Engine) Forecast(horizon int, events []forecast.EventImpact) (*forecast.Result, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if len(e.history) == 0 {
		return nil, ErrNoHistory
	}
	return e.orchestrator.Forecast(forecast.Input{
		Records:  e.history,
		Seasonal: e.profile,
		Events:   events,
		Horizon:  horizon,
	}), nil
}

// PredictRealTime predicts demand for a single day from recent history.
func (e *Engine) PredictRealTime(day time.Time, recent []orderseries.DailyRecord) (*forecast.RealTimePrediction, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if len(recent) == 0 {
		recent = e.history
	}
	return e.orchestrator.PredictRealTime(day, recent)
}

// Profile returns the seasonal profile from the last Fit, nil before any
// successful analysis.
func (e *Engine) Profile() *seasonality.Profile {
	return e.profile
}

// TrainingResult returns the last successful training outcome.
func (e *Engine) TrainingResult() *forecast.TrainingResult {
	return e.lastFit
}

// PredictNextEvent predicts the next comeback event from event history and
// external signals.
func (e *Engine) PredictNextEvent(history []comeback.EventRecord, social []comeback.SocialSignal, market []comeback.MarketIndicator) (*comeback.Prediction, error) {
	if e.closed {
		return nil, ErrClosed
	}
	return e.predictor.PredictNextEvent(history, social, market), nil
}

// EventProbability estimates the probability of a comeback within the next
// windowDays given the days elapsed since the last event.
func (e *Engine) EventProbability(history []comeback.EventRecord, daysSinceLast, windowDays int) (float64, error) {
	if e.closed {
		return 0, ErrClosed
	}
	return e.predictor.Probability(history, daysSinceLast, windowDays), nil
}

// OptimalTiming suggests a campaign launch date avoiding competitor event
// windows.
func (e *Engine) OptimalTiming(history []comeback.EventRecord, competitors []comeback.CompetitorEvent) (time.Time, error) {
	if e.closed {
		return time.Time{}, ErrClosed
	}
	return e.predictor.OptimalTiming(history, competitors), nil
}

// ImpactOn converts a predicted event into a dated impact suitable for
// Forecast.
func (e *Engine) ImpactOn(date time.Time, history []comeback.EventRecord) forecast.EventImpact {
	return forecast.EventImpact{
		Date:   date,
		Impact: e.predictor.ImpactCurve(history),
	}
}

// Artifact exports the trained model state for persistence.
func (e *Engine) Artifact() (*forecast.Artifact, error) {
	if e.closed {
		return nil, ErrClosed
	}
	return e.orchestrator.Export()
}

// Restore loads a previously exported artifact, skipping the training step.
// History still has to be supplied through LoadHistory before forecasting.
func (e *Engine) Restore(a *forecast.Artifact) error {
	if e.closed {
		return ErrClosed
	}
	return e.orchestrator.Restore(a)
}

// LoadHistory sets the history context and seasonal profile without
// retraining, for use after Restore.
func (e *Engine) LoadHistory(records []orderseries.DailyRecord) error {
	if e.closed {
		return ErrClosed
	}
	series, err := orderseries.New(records)
	if err != nil {
		return fmt.Errorf("unable to build order series, %w", err)
	}
	e.history = series.Records
	if profile, err := seasonality.Analyze(series); err == nil {
		e.profile = profile
	}
	return nil
}

// Close releases the engine. Subsequent calls fail with ErrClosed.
func (e *Engine) Close() error {
	e.closed = true
	e.history = nil
	e.profile = nil
	return nil
}
