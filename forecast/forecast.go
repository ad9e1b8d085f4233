// Package forecast composes preprocessed features, seasonal multipliers,
// and comeback impact curves into trained demand forecasts with per-day
// confidence.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/demandcast/demandcast/comeback"
	"github.com/demandcast/demandcast/models"
	"github.com/demandcast/demandcast/orderseries"
	"github.com/demandcast/demandcast/preprocess"
	"github.com/demandcast/demandcast/seasonality"
	"github.com/demandcast/demandcast/trainer"
	"github.com/google/uuid"
)

var (
	ErrInsufficientData = errors.New("insufficient data to train")
	ErrTrainingFailure  = errors.New("model training failed")
	ErrUntrained        = errors.New("orchestrator has no trained model")
)

// Options is the orchestrator configuration surface.
type Options struct {
	// Horizon is the default number of days to forecast.
	Horizon int `yaml:"horizon" json:"horizon"`

	// MinTrainSamples is the minimum windowed sample count required to
	// train; below it Train fails with an insufficient-data result.
	MinTrainSamples int `yaml:"min_train_samples" json:"min_train_samples"`

	Preprocess preprocess.Config `yaml:"preprocess" json:"preprocess"`
	Trainer    trainer.Config    `yaml:"trainer" json:"trainer"`

	// Per-day confidence starts at ConfidenceBase and decays by
	// ConfidenceDecay per forecast day, floored at MinConfidence. The decay
	// surfaces the compounding error of the iterative forecast loop.
	ConfidenceBase  float64 `yaml:"confidence_base" json:"confidence_base"`
	ConfidenceDecay float64 `yaml:"confidence_decay" json:"confidence_decay"`
	MinConfidence   float64 `yaml:"min_confidence" json:"min_confidence"`

	// HeuristicWindow is the trailing day count used by the fallback path.
	HeuristicWindow int `yaml:"heuristic_window" json:"heuristic_window"`
}

// NewDefaultOptions returns the default orchestrator options.
func NewDefaultOptions() *Options {
	return &Options{
		Horizon:         14,
		MinTrainSamples: trainer.MinTrainSamples,
		Preprocess:      preprocess.NewDefaultConfig(),
		Trainer:         trainer.NewDefaultConfig(),
		ConfidenceBase:  0.9,
		ConfidenceDecay: 0.03,
		MinConfidence:   0.2,
		HeuristicWindow: 7,
	}
}

// EventImpact anchors a predicted or known impact curve to a calendar date.
type EventImpact struct {
	Date   time.Time               `json:"date"`
	Impact *comeback.ImpactForecast `json:"impact"`
}

// multiplierOn returns the demand multiplier this event contributes on the
// given date, 1.0 outside the impact window.
func (e EventImpact) multiplierOn(date time.Time) float64 {
	if e.Impact == nil {
		return 1.0
	}
	day := int(date.Sub(orderseries.Day(e.Date)).Hours() / 24)
	if day < 0 || day >= len(e.Impact.Timeline) {
		return 1.0
	}
	return e.Impact.Timeline[day].Multiplier
}

// Input is one forecast request.
type Input struct {
	Records []orderseries.DailyRecord

	// Seasonal feeds the heuristic fallback path. The model path learns
	// calendar seasonality from its feature encodings and does not reapply
	// the profile, which would count the same pattern twice.
	Seasonal *seasonality.Profile

	Events  []EventImpact
	Horizon int
}

// Day is a single forecast day.
type Day struct {
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
	Confidence float64   `json:"confidence"`
}

// Result is the ephemeral output of one forecast invocation.
type Result struct {
	ID          uuid.UUID `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Days        []Day     `json:"days"`

	// Degraded marks results produced by the heuristic fallback path.
	Degraded bool   `json:"degraded"`
	Method   string `json:"method"`

	// FitScores summarize the trained model's fit on its training data,
	// nil on the fallback path.
	FitScores *Scores `json:"fit_scores,omitempty"`
}

// TrainingResult is the outcome of one Train call.
type TrainingResult struct {
	Success bool `json:"success"`

	// Holdout are the held-out evaluation metrics from the trainer.
	Holdout trainer.Metrics `json:"holdout"`

	// FitScores compare the in-sample fit against the training targets.
	FitScores *Scores `json:"fit_scores,omitempty"`

	Samples      int           `json:"samples"`
	BestEpoch    int           `json:"best_epoch"`
	TrainingTime time.Duration `json:"training_time"`
}

// Orchestrator owns one entity's trained model and scaling parameters.
// Training and forecasting on the same instance must not run concurrently;
// distinct instances are fully independent.
type Orchestrator struct {
	opt *Options
	pre *preprocess.Preprocessor

	model    models.Model
	prepared *preprocess.Result
	trained  bool
}

// New creates an orchestrator with the given options. If none are provided
// a default is used.
func New(opt *Options) *Orchestrator {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if opt.MinTrainSamples <= 0 {
		opt.MinTrainSamples = trainer.MinTrainSamples
	}
	if opt.Horizon <= 0 {
		opt.Horizon = 14
	}
	if opt.HeuristicWindow <= 0 {
		opt.HeuristicWindow = 7
	}
	if opt.ConfidenceBase <= 0 {
		opt.ConfidenceBase = 0.9
	}
	if opt.MinConfidence <= 0 {
		opt.MinConfidence = 0.2
	}
	return &Orchestrator{
		opt: opt,
		pre: preprocess.New(opt.Preprocess),
	}
}

// Trained reports whether a model is available for the advanced path.
func (o *Orchestrator) Trained() bool {
	return o != nil && o.trained
}

// Scaling exposes the scaling parameters captured during the last training
// run, required to persist alongside the model.
func (o *Orchestrator) Scaling() *preprocess.ScalingParameters {
	if o == nil || o.prepared == nil {
		return nil
	}
	return o.prepared.Scaling
}

// Train preprocesses the history and fits the regression model. Below the
// minimum sample count it returns a failed result with an insufficient-data
// error rather than training a degenerate model.
func (o *Orchestrator) Train(records []orderseries.DailyRecord) (*TrainingResult, error) {
	res, err := o.pre.Run(records)
	if err != nil {
		if errors.Is(err, preprocess.ErrInsufficientData) {
			return &TrainingResult{}, fmt.Errorf("%w, %w", ErrInsufficientData, err)
		}
		return &TrainingResult{}, fmt.Errorf("%w, %w", ErrTrainingFailure, err)
	}

	if len(res.Matrix) < o.opt.MinTrainSamples {
		return &TrainingResult{}, fmt.Errorf("%d windowed samples, need %d, %w",
			len(res.Matrix), o.opt.MinTrainSamples, ErrInsufficientData)
	}

	trained, err := trainer.Train(res.Matrix, res.Target, o.opt.Trainer)
	if err != nil {
		if errors.Is(err, trainer.ErrInsufficientData) {
			return &TrainingResult{}, fmt.Errorf("%w, %w", ErrInsufficientData, err)
		}
		return &TrainingResult{}, fmt.Errorf("%w, %w", ErrTrainingFailure, err)
	}

	o.model = trained.Model
	o.prepared = res
	o.trained = true

	fitScores := o.fitScores(res)

	return &TrainingResult{
		Success:      true,
		Holdout:      trained.Metrics,
		FitScores:    fitScores,
		Samples:      len(res.Matrix),
		BestEpoch:    trained.BestEpoch,
		TrainingTime: trained.TrainingTime,
	}, nil
}

// Tune searches the hyperparameter grid against the preprocessed history
// and adopts the best configuration for subsequent Train calls.
func (o *Orchestrator) Tune(records []orderseries.DailyRecord, grid trainer.Grid) (*trainer.OptimizeResult, error) {
	res, err := o.pre.Run(records)
	if err != nil {
		if errors.Is(err, preprocess.ErrInsufficientData) {
			return nil, fmt.Errorf("%w, %w", ErrInsufficientData, err)
		}
		return nil, fmt.Errorf("%w, %w", ErrTrainingFailure, err)
	}

	search, err := trainer.Optimize(res.Matrix, res.Target, grid)
	if err != nil {
		if errors.Is(err, trainer.ErrInsufficientData) {
			return nil, fmt.Errorf("%w, %w", ErrInsufficientData, err)
		}
		return nil, fmt.Errorf("%w, %w", ErrTrainingFailure, err)
	}

	o.opt.Trainer = search.Best.Config
	return search, nil
}

// TrainModel is a thin adapter over Train for callers holding the older
// call shape. New code should call Train directly.
func (o *Orchestrator) TrainModel(records []orderseries.DailyRecord) (*TrainingResult, error) {
	return o.Train(records)
}

// GenerateForecast is a thin adapter over Forecast for callers holding the
// older call shape. New code should call Forecast directly.
func (o *Orchestrator) GenerateForecast(records []orderseries.DailyRecord, horizon int) *Result {
	return o.Forecast(Input{Records: records, Horizon: horizon})
}

// fitScores compares in-sample predictions against training targets in raw
// units. A restored orchestrator has no training matrix and reports none.
func (o *Orchestrator) fitScores(res *preprocess.Result) *Scores {
	if res == nil || len(res.Matrix) == 0 {
		return nil
	}
	pred, err := o.model.Predict(models.NewMatrix(res.Matrix))
	if err != nil {
		return nil
	}
	rawPred := make([]float64, len(pred))
	rawActual := make([]float64, len(res.Target))
	for i := range pred {
		rawPred[i] = res.Scaling.InverseTarget(pred[i])
		rawActual[i] = res.Scaling.InverseTarget(res.Target[i])
	}
	scores, err := NewScores(rawPred, rawActual)
	if err != nil {
		return nil
	}
	return scores
}

// Forecast produces an N-day forecast. Any failure on the advanced path
// falls back to the trailing-window heuristic and flags the result as
// degraded; forecast requests never surface a hard error.
func (o *Orchestrator) Forecast(in Input) *Result {
	horizon := in.Horizon
	if horizon <= 0 {
		horizon = o.opt.Horizon
	}

	if !o.trained {
		return o.heuristicForecast(in, horizon)
	}

	res, err := o.modelForecast(in, horizon)
	if err != nil {
		return o.heuristicForecast(in, horizon)
	}
	return res
}

// modelForecast runs the iterative loop: predict day t+1 from the trailing
// window, append the prediction as history, repeat. Errors compound across
// the horizon, which the decaying confidence reflects.
func (o *Orchestrator) modelForecast(in Input, horizon int) (*Result, error) {
	run, err := o.pre.Run(in.Records)
	if err != nil {
		return nil, err
	}

	// normalize with the training-run scaling so units match the model
	scaling := o.prepared.Scaling

	history := make([]float64, len(run.History))
	copy(history, run.History)
	last := run.LastRecord

	days := make([]Day, 0, horizon)
	for h := 0; h < horizon; h++ {
		date := last.Date.AddDate(0, 0, h+1)

		row := o.pre.FutureRow(date, history, last, scaling)
		pred, err := o.model.Predict(models.NewMatrix([][]float64{row}))
		if err != nil {
			return nil, err
		}
		modelValue := math.Max(scaling.InverseTarget(pred[0]), 0)

		// comeback impacts are external to the training data and compose
		// multiplicatively; calendar seasonality is already in the features
		value := modelValue
		for _, e := range in.Events {
			value *= e.multiplierOn(date)
		}

		confidence := o.opt.ConfidenceBase - o.opt.ConfidenceDecay*float64(h)
		if confidence < o.opt.MinConfidence {
			confidence = o.opt.MinConfidence
		}

		days = append(days, Day{Date: date, Value: value, Confidence: confidence})

		// feed back the unmultiplied model value so an impact curve does
		// not contaminate the lag and rolling features of later days
		history = append(history, modelValue)
	}

	return &Result{
		ID:          uuid.New(),
		GeneratedAt: time.Now(),
		Days:        days,
		Method:      "model",
		FitScores:   o.fitScores(o.prepared),
	}, nil
}

// Artifact is the serializable state of a trained orchestrator: the model
// weights plus the scaling parameters and feature layout they were trained
// against.
type Artifact struct {
	Weights      models.Weights                `json:"weights"`
	Scaling      *preprocess.ScalingParameters `json:"scaling"`
	FeatureNames []string                      `json:"feature_names"`
	Trainer      trainer.Config                `json:"trainer"`
	TrainedAt    time.Time                     `json:"trained_at"`
}

// Export captures the trained model for persistence.
func (o *Orchestrator) Export() (*Artifact, error) {
	if !o.trained {
		return nil, ErrUntrained
	}
	type weighter interface{ Weights() models.Weights }
	w, ok := o.model.(weighter)
	if !ok {
		return nil, fmt.Errorf("model does not expose weights, %w", ErrUntrained)
	}
	return &Artifact{
		Weights:      w.Weights(),
		Scaling:      o.prepared.Scaling,
		FeatureNames: o.prepared.FeatureNames,
		Trainer:      o.opt.Trainer,
		TrainedAt:    time.Now(),
	}, nil
}

// Restore loads a previously exported artifact so the orchestrator can
// forecast without retraining. History context still comes from the records
// passed to Forecast.
func (o *Orchestrator) Restore(a *Artifact) error {
	if a == nil || a.Scaling == nil {
		return fmt.Errorf("artifact carries no scaling parameters, %w", ErrUntrained)
	}
	model, err := a.Weights.Load()
	if err != nil {
		return fmt.Errorf("unable to load model weights, %w", err)
	}
	o.model = model
	o.prepared = &preprocess.Result{
		Scaling:      a.Scaling,
		FeatureNames: a.FeatureNames,
	}
	o.trained = true
	return nil
}

// RealTimePrediction is a single-day prediction with its drivers.
type RealTimePrediction struct {
	Prediction          float64            `json:"prediction"`
	Confidence          float64            `json:"confidence"`
	ContributingFactors map[string]float64 `json:"contributing_factors"`
}

// PredictRealTime predicts the given day from recent history only,
// reporting the factors that shaped the number.
func (o *Orchestrator) PredictRealTime(day time.Time, recent []orderseries.DailyRecord) (*RealTimePrediction, error) {
	series, err := orderseries.New(recent)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrInsufficientData, err)
	}

	counts := series.Counts()
	window := o.opt.HeuristicWindow
	if len(counts) > window {
		counts = counts[len(counts)-window:]
	}
	recentMean := mean(counts)

	factors := map[string]float64{
		"recent_mean": recentMean,
	}

	profile, err := seasonality.Analyze(series)
	weekdayMult := 1.0
	if err == nil {
		weekdayMult = profile.WeekdayMultiplier(day.Weekday())
		factors["weekday_multiplier"] = weekdayMult
		factors["trend_strength"] = profile.TrendStrength
	}

	prediction := recentMean * weekdayMult
	confidence := o.opt.ConfidenceBase

	if o.trained {
		if res, err := o.modelForecastPoint(day, series); err == nil {
			factors["model_prediction"] = res
			prediction = res
		} else {
			confidence = o.opt.ConfidenceBase / 2
		}
	} else {
		confidence = o.opt.ConfidenceBase / 2
	}

	return &RealTimePrediction{
		Prediction:          math.Max(prediction, 0),
		Confidence:          confidence,
		ContributingFactors: factors,
	}, nil
}

func (o *Orchestrator) modelForecastPoint(day time.Time, series *orderseries.OrderSeries) (float64, error) {
	if !o.trained {
		return 0, ErrUntrained
	}
	history := series.Counts()
	last := series.Records[series.Len()-1]
	row := o.pre.FutureRow(day, history, last, o.prepared.Scaling)
	pred, err := o.model.Predict(models.NewMatrix([][]float64{row}))
	if err != nil {
		return 0, err
	}
	return o.prepared.Scaling.InverseTarget(pred[0]), nil
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
