// Package trainer fits the orchestrator's regression model and searches a
// hyperparameter grid for the best configuration via held-out evaluation.
package trainer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/demandcast/demandcast/models"
)

var (
	ErrInsufficientData = errors.New("insufficient training samples")
	ErrEmptyGrid        = errors.New("empty hyperparameter grid")
)

const (
	// MinTrainSamples is the minimum windowed sample count to attempt a
	// fit at all.
	MinTrainSamples = 10

	holdoutFraction = 0.2
)

// Config is one model configuration in the search space. HiddenWidth 0
// selects the plain linear regressor.
type Config struct {
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	BatchSize    int     `yaml:"batch_size" json:"batch_size"`
	HiddenWidth  int     `yaml:"hidden_width" json:"hidden_width"`
	L2           float64 `yaml:"l2" json:"l2"`
	Epochs       int     `yaml:"epochs" json:"epochs"`
	Patience     int     `yaml:"patience" json:"patience"`
	Seed         uint64  `yaml:"seed" json:"seed"`
}

// NewDefaultConfig returns the default training configuration.
func NewDefaultConfig() Config {
	return Config{
		LearningRate: models.DefaultLearningRate,
		BatchSize:    models.DefaultBatchSize,
		HiddenWidth:  0,
		Epochs:       models.DefaultEpochs,
		Patience:     models.DefaultPatience,
	}
}

func (c Config) sgdOptions() *models.SGDOptions {
	return &models.SGDOptions{
		LearningRate: c.LearningRate,
		Epochs:       c.Epochs,
		BatchSize:    c.BatchSize,
		L2:           c.L2,
		Patience:     c.Patience,
		Seed:         c.Seed,
	}
}

func (c Config) newModel() (models.Model, error) {
	if c.HiddenWidth > 0 {
		return models.NewNeuralRegressor(&models.NeuralOptions{
			HiddenWidth: c.HiddenWidth,
			SGD:         c.sgdOptions(),
		})
	}
	return models.NewSGDRegressor(c.sgdOptions())
}

// Metrics are the held-out evaluation scores of one trained candidate.
type Metrics struct {
	Loss     float64 `json:"loss"`
	MAE      float64 `json:"mae"`
	R2       float64 `json:"r2_score"`
	Accuracy float64 `json:"accuracy"`
}

// Result is the outcome of training one configuration.
type Result struct {
	Config       Config        `json:"config"`
	Metrics      Metrics       `json:"metrics"`
	BestEpoch    int           `json:"best_epoch"`
	TrainingTime time.Duration `json:"training_time"`

	// Model is the fitted model; nil in serialized contexts.
	Model models.Model `json:"-"`
}

// Train fits one configuration on time-ordered rows and evaluates it on the
// trailing holdout. All buffers are plain slices released when the result
// goes out of scope, on success and failure alike.
func Train(x [][]float64, y []float64, cfg Config) (*Result, error) {
	if len(x) < MinTrainSamples {
		return nil, fmt.Errorf("%d samples, need %d, %w", len(x), MinTrainSamples, ErrInsufficientData)
	}

	fold, err := models.HoldoutSplit(x, y, holdoutFraction)
	if err != nil {
		return nil, fmt.Errorf("holdout split, %w", err)
	}

	model, err := cfg.newModel()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize model, %w", err)
	}

	// the trailing holdout stays unseen during the fit so the metrics are
	// genuinely out-of-sample
	start := time.Now()
	if err := model.Fit(models.NewMatrix(fold.TrainX), models.NewTarget(fold.TrainY)); err != nil {
		return nil, fmt.Errorf("unable to fit model, %w", err)
	}
	elapsed := time.Since(start)

	metrics, err := evaluate(model, fold.TestX, fold.TestY)
	if err != nil {
		return nil, fmt.Errorf("unable to evaluate model, %w", err)
	}

	bestEpoch := 0
	type tracer interface{ Trace() models.TrainingTrace }
	if t, ok := model.(tracer); ok {
		bestEpoch = t.Trace().BestEpoch
	}

	return &Result{
		Config:       cfg,
		Metrics:      metrics,
		BestEpoch:    bestEpoch,
		TrainingTime: elapsed,
		Model:        model,
	}, nil
}

func evaluate(model models.Model, x [][]float64, y []float64) (Metrics, error) {
	pred, err := model.Predict(models.NewMatrix(x))
	if err != nil {
		return Metrics{}, err
	}

	var loss, mae, mape float64
	mapeCount := 0
	for i := range y {
		diff := pred[i] - y[i]
		loss += diff * diff
		mae += math.Abs(diff)
		if y[i] != 0 {
			mape += math.Abs(diff / y[i])
			mapeCount++
		}
	}
	n := float64(len(y))
	loss /= n
	mae /= n
	if mapeCount > 0 {
		mape /= float64(mapeCount)
	}

	r2, err := model.Score(models.NewMatrix(x), models.NewTarget(y))
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		Loss:     loss,
		MAE:      mae,
		R2:       r2,
		Accuracy: math.Max(0, 1-mape),
	}, nil
}
