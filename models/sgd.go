package models

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultLearningRate    = 0.01
	DefaultEpochs          = 200
	DefaultBatchSize       = 16
	DefaultPatience        = 10
	DefaultValidationSplit = 0.2
)

var (
	ErrNonPositiveLearningRate = errors.New("learning rate must be positive")
	ErrNegativeRegularization  = errors.New("negative regularization")
	ErrValidationSplitRange    = errors.New("validation split must be in [0,1)")
)

// SGDOptions configures the minibatch gradient-descent fit shared by the
// linear and neural regressors.
type SGDOptions struct {
	// LearningRate is the step size applied to each minibatch gradient.
	LearningRate float64

	// Epochs caps the number of passes over the training set.
	Epochs int

	// BatchSize is the minibatch size; values above the sample count fall
	// back to full-batch updates.
	BatchSize int

	// L2 is the ridge regularization strength.
	L2 float64

	// Patience is the number of epochs without validation improvement
	// before stopping early. 0 disables early stopping.
	Patience int

	// ValidationSplit is the trailing fraction of samples held out for the
	// early-stopping loss. The split is time-ordered, never shuffled.
	ValidationSplit float64

	// Seed makes shuffling deterministic for tests.
	Seed uint64
}

// Validate fills defaults and rejects unusable values.
func (o *SGDOptions) Validate() (*SGDOptions, error) {
	if o == nil {
		o = NewDefaultSGDOptions()
	}
	if o.LearningRate == 0 {
		o.LearningRate = DefaultLearningRate
	}
	if o.LearningRate < 0 {
		return nil, ErrNonPositiveLearningRate
	}
	if o.L2 < 0 {
		return nil, ErrNegativeRegularization
	}
	if o.ValidationSplit < 0 || o.ValidationSplit >= 1 {
		return nil, ErrValidationSplitRange
	}
	if o.Epochs <= 0 {
		o.Epochs = DefaultEpochs
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ValidationSplit == 0 {
		o.ValidationSplit = DefaultValidationSplit
	}
	return o, nil
}

// NewDefaultSGDOptions returns the default gradient-descent options.
func NewDefaultSGDOptions() *SGDOptions {
	return &SGDOptions{
		LearningRate:    DefaultLearningRate,
		Epochs:          DefaultEpochs,
		BatchSize:       DefaultBatchSize,
		Patience:        DefaultPatience,
		ValidationSplit: DefaultValidationSplit,
	}
}

// SGDRegressor is a linear model trained with minibatch gradient descent
// and L2 regularization, with validation-loss early stopping.
type SGDRegressor struct {
	opt *SGDOptions

	coef      []float64
	intercept float64
	trace     TrainingTrace
	trained   bool
}

// NewSGDRegressor initializes a linear model ready for fitting.
func NewSGDRegressor(opt *SGDOptions) (*SGDRegressor, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &SGDRegressor{opt: opt}, nil
}

// Fit trains the model on the given matrix and single-column target.
func (s *SGDRegressor) Fit(x, y mat.Matrix) error {
	if s.opt == nil {
		return ErrNoOptions
	}
	m, n, err := validateFitInput(x, y)
	if err != nil {
		return err
	}

	trainX, trainY, valX, valY := splitValidation(x, y, m, s.opt.ValidationSplit)

	w := make([]float64, n)
	var b float64
	bestW := make([]float64, n)
	var bestB float64
	bestVal := math.Inf(1)
	sinceBest := 0

	rng := rand.New(rand.NewPCG(s.opt.Seed, s.opt.Seed+1))
	order := make([]int, len(trainY))
	for i := range order {
		order[i] = i
	}

	gradW := make([]float64, n)
	row := make([]float64, n)

	trace := TrainingTrace{}
	for epoch := 0; epoch < s.opt.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for start := 0; start < len(order); start += s.opt.BatchSize {
			end := start + s.opt.BatchSize
			if end > len(order) {
				end = len(order)
			}
			batch := order[start:end]

			for j := range gradW {
				gradW[j] = 0
			}
			gradB := 0.0
			for _, i := range batch {
				mat.Row(row, i, trainX)
				pred := floats.Dot(w, row) + b
				diff := pred - trainY[i]
				floats.AddScaled(gradW, diff, row)
				gradB += diff
			}
			scale := s.opt.LearningRate / float64(len(batch))
			for j := range w {
				w[j] -= scale * (gradW[j] + s.opt.L2*w[j]*float64(len(batch)))
			}
			b -= scale * gradB
		}

		trainLoss := linearLoss(trainX, trainY, w, b)
		if math.IsNaN(trainLoss) || math.IsInf(trainLoss, 0) {
			return ErrDiverged
		}
		trace.TrainLoss = append(trace.TrainLoss, trainLoss)

		valLoss := trainLoss
		if len(valY) > 0 {
			valLoss = linearLoss(valX, valY, w, b)
		}
		trace.ValLoss = append(trace.ValLoss, valLoss)

		if valLoss < bestVal {
			bestVal = valLoss
			copy(bestW, w)
			bestB = b
			trace.BestEpoch = epoch
			sinceBest = 0
			continue
		}
		sinceBest++
		if s.opt.Patience > 0 && sinceBest >= s.opt.Patience {
			trace.Stopped = true
			break
		}
	}

	s.coef = bestW
	s.intercept = bestB
	s.trace = trace
	s.trained = true
	return nil
}

// Predict runs inference over the design matrix rows.
func (s *SGDRegressor) Predict(x mat.Matrix) ([]float64, error) {
	if !s.trained {
		return nil, ErrUntrainedModel
	}
	if emptyMatrix(x) {
		return nil, ErrNoDesignMatrix
	}
	m, n := x.Dims()
	if n != len(s.coef) {
		return nil, ErrFeatureMismatch
	}
	out := make([]float64, m)
	row := make([]float64, n)
	for i := 0; i < m; i++ {
		mat.Row(row, i, x)
		out[i] = floats.Dot(s.coef, row) + s.intercept
	}
	return out, nil
}

// Score computes the coefficient of determination of the prediction.
func (s *SGDRegressor) Score(x, y mat.Matrix) (float64, error) {
	res, err := s.Predict(x)
	if err != nil {
		return 0, err
	}
	ySlice := mat.Col(nil, 0, y)
	score := stat.RSquaredFrom(res, ySlice, nil)
	if math.IsNaN(score) {
		score = 1.0
	}
	return score, nil
}

func (s *SGDRegressor) Intercept() float64 {
	return s.intercept
}

func (s *SGDRegressor) Coef() []float64 {
	c := make([]float64, len(s.coef))
	copy(c, s.coef)
	return c
}

// Trace returns the per-epoch loss history of the last fit.
func (s *SGDRegressor) Trace() TrainingTrace {
	return s.trace
}

// Weights exports the trained parameters for persistence.
func (s *SGDRegressor) Weights() Weights {
	return Weights{Intercept: s.intercept, Coef: s.Coef()}
}

// SetWeights restores trained parameters, marking the model ready for
// inference without a new fit.
func (s *SGDRegressor) SetWeights(w Weights) {
	s.intercept = w.Intercept
	s.coef = make([]float64, len(w.Coef))
	copy(s.coef, w.Coef)
	s.trained = true
}

func linearLoss(x mat.Matrix, y, w []float64, b float64) float64 {
	if len(y) == 0 {
		return 0
	}
	_, n := x.Dims()
	row := make([]float64, n)
	loss := 0.0
	for i := range y {
		mat.Row(row, i, x)
		diff := floats.Dot(w, row) + b - y[i]
		loss += diff * diff
	}
	return loss / float64(len(y))
}

// splitValidation holds out the trailing fraction of rows as a validation
// set, preserving time order.
func splitValidation(x, y mat.Matrix, m int, frac float64) (mat.Matrix, []float64, mat.Matrix, []float64) {
	ySlice := mat.Col(nil, 0, y)
	nVal := int(float64(m) * frac)
	if nVal == 0 || m-nVal < 2 {
		return x, ySlice, nil, nil
	}
	split := m - nVal

	xd := mat.DenseCopyOf(x)
	trainX := xd.Slice(0, split, 0, xd.RawMatrix().Cols)
	valX := xd.Slice(split, m, 0, xd.RawMatrix().Cols)
	return trainX, ySlice[:split], valX, ySlice[split:]
}
