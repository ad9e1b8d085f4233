package models

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const DefaultHiddenWidth = 8

// NeuralOptions configures the one-hidden-layer regressor. The SGD fields
// behave exactly as in SGDOptions.
type NeuralOptions struct {
	// HiddenWidth is the number of tanh units in the hidden layer.
	HiddenWidth int

	SGD *SGDOptions
}

// NewDefaultNeuralOptions returns the default neural regressor options.
func NewDefaultNeuralOptions() *NeuralOptions {
	return &NeuralOptions{
		HiddenWidth: DefaultHiddenWidth,
		SGD:         NewDefaultSGDOptions(),
	}
}

// Validate fills defaults and rejects unusable values.
func (o *NeuralOptions) Validate() (*NeuralOptions, error) {
	if o == nil {
		o = NewDefaultNeuralOptions()
	}
	if o.HiddenWidth <= 0 {
		o.HiddenWidth = DefaultHiddenWidth
	}
	sgd, err := o.SGD.Validate()
	if err != nil {
		return nil, err
	}
	o.SGD = sgd
	return o, nil
}

// NeuralRegressor is a single-hidden-layer tanh network trained with
// minibatch gradient descent. It exists to capture the nonlinear lag and
// seasonal interactions a linear fit misses on demand series.
type NeuralRegressor struct {
	opt *NeuralOptions

	// w1 is hidden x input, b1 hidden, w2 hidden, b2 scalar
	w1 *mat.Dense
	b1 []float64
	w2 []float64
	b2 float64

	trace   TrainingTrace
	trained bool
}

// NewNeuralRegressor initializes a neural model ready for fitting.
func NewNeuralRegressor(opt *NeuralOptions) (*NeuralRegressor, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &NeuralRegressor{opt: opt}, nil
}

// Fit trains the network on the given matrix and single-column target.
func (r *NeuralRegressor) Fit(x, y mat.Matrix) error {
	if r.opt == nil {
		return ErrNoOptions
	}
	m, n, err := validateFitInput(x, y)
	if err != nil {
		return err
	}
	sgd := r.opt.SGD
	h := r.opt.HiddenWidth

	trainX, trainY, valX, valY := splitValidation(x, y, m, sgd.ValidationSplit)

	rng := rand.New(rand.NewPCG(sgd.Seed, sgd.Seed+1))
	r.initWeights(n, h, rng)

	best := r.snapshot()
	bestVal := math.Inf(1)
	sinceBest := 0

	order := make([]int, len(trainY))
	for i := range order {
		order[i] = i
	}

	row := make([]float64, n)
	hidden := make([]float64, h)
	gradW1 := mat.NewDense(h, n, nil)
	gradB1 := make([]float64, h)
	gradW2 := make([]float64, h)

	trace := TrainingTrace{}
	for epoch := 0; epoch < sgd.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for start := 0; start < len(order); start += sgd.BatchSize {
			end := start + sgd.BatchSize
			if end > len(order) {
				end = len(order)
			}
			batch := order[start:end]

			gradW1.Zero()
			for j := range gradB1 {
				gradB1[j] = 0
				gradW2[j] = 0
			}
			gradB2 := 0.0

			for _, i := range batch {
				mat.Row(row, i, trainX)
				pred := r.forward(row, hidden)
				diff := pred - trainY[i]

				gradB2 += diff
				for j := 0; j < h; j++ {
					gradW2[j] += diff * hidden[j]
					// backprop through tanh
					dh := diff * r.w2[j] * (1 - hidden[j]*hidden[j])
					gradB1[j] += dh
					for k := 0; k < n; k++ {
						gradW1.Set(j, k, gradW1.At(j, k)+dh*row[k])
					}
				}
			}

			scale := sgd.LearningRate / float64(len(batch))
			l2 := sgd.L2 * float64(len(batch))
			for j := 0; j < h; j++ {
				r.w2[j] -= scale * (gradW2[j] + l2*r.w2[j])
				r.b1[j] -= scale * gradB1[j]
				for k := 0; k < n; k++ {
					r.w1.Set(j, k, r.w1.At(j, k)-scale*(gradW1.At(j, k)+l2*r.w1.At(j, k)))
				}
			}
			r.b2 -= scale * gradB2
		}

		trainLoss := r.loss(trainX, trainY)
		if math.IsNaN(trainLoss) || math.IsInf(trainLoss, 0) {
			return ErrDiverged
		}
		trace.TrainLoss = append(trace.TrainLoss, trainLoss)

		valLoss := trainLoss
		if len(valY) > 0 {
			valLoss = r.loss(valX, valY)
		}
		trace.ValLoss = append(trace.ValLoss, valLoss)

		if valLoss < bestVal {
			bestVal = valLoss
			best = r.snapshot()
			trace.BestEpoch = epoch
			sinceBest = 0
			continue
		}
		sinceBest++
		if sgd.Patience > 0 && sinceBest >= sgd.Patience {
			trace.Stopped = true
			break
		}
	}

	r.restore(best)
	r.trace = trace
	r.trained = true
	return nil
}

func (r *NeuralRegressor) initWeights(n, h int, rng *rand.Rand) {
	// Xavier-style init keeps tanh units out of saturation
	limit := math.Sqrt(6.0 / float64(n+h))
	w1 := make([]float64, h*n)
	for i := range w1 {
		w1[i] = (rng.Float64()*2 - 1) * limit
	}
	r.w1 = mat.NewDense(h, n, w1)
	r.b1 = make([]float64, h)
	r.w2 = make([]float64, h)
	limit2 := math.Sqrt(6.0 / float64(h+1))
	for i := range r.w2 {
		r.w2[i] = (rng.Float64()*2 - 1) * limit2
	}
	r.b2 = 0
}

// forward computes the prediction for one input row, filling hidden with
// the tanh activations.
func (r *NeuralRegressor) forward(row, hidden []float64) float64 {
	h, _ := r.w1.Dims()
	for j := 0; j < h; j++ {
		hidden[j] = math.Tanh(floats.Dot(r.w1.RawRowView(j), row) + r.b1[j])
	}
	return floats.Dot(r.w2, hidden) + r.b2
}

func (r *NeuralRegressor) loss(x mat.Matrix, y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	_, n := x.Dims()
	h := len(r.b1)
	row := make([]float64, n)
	hidden := make([]float64, h)
	loss := 0.0
	for i := range y {
		mat.Row(row, i, x)
		diff := r.forward(row, hidden) - y[i]
		loss += diff * diff
	}
	return loss / float64(len(y))
}

type neuralSnapshot struct {
	w1 *mat.Dense
	b1 []float64
	w2 []float64
	b2 float64
}

func (r *NeuralRegressor) snapshot() neuralSnapshot {
	s := neuralSnapshot{
		w1: mat.DenseCopyOf(r.w1),
		b1: make([]float64, len(r.b1)),
		w2: make([]float64, len(r.w2)),
		b2: r.b2,
	}
	copy(s.b1, r.b1)
	copy(s.w2, r.w2)
	return s
}

func (r *NeuralRegressor) restore(s neuralSnapshot) {
	r.w1 = s.w1
	r.b1 = s.b1
	r.w2 = s.w2
	r.b2 = s.b2
}

// Predict runs inference over the design matrix rows.
func (r *NeuralRegressor) Predict(x mat.Matrix) ([]float64, error) {
	if !r.trained {
		return nil, ErrUntrainedModel
	}
	if emptyMatrix(x) {
		return nil, ErrNoDesignMatrix
	}
	m, n := x.Dims()
	_, inputs := r.w1.Dims()
	if n != inputs {
		return nil, ErrFeatureMismatch
	}
	out := make([]float64, m)
	row := make([]float64, n)
	hidden := make([]float64, len(r.b1))
	for i := 0; i < m; i++ {
		mat.Row(row, i, x)
		out[i] = r.forward(row, hidden)
	}
	return out, nil
}

// Score computes the coefficient of determination of the prediction.
func (r *NeuralRegressor) Score(x, y mat.Matrix) (float64, error) {
	res, err := r.Predict(x)
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

// Intercept returns the output-layer bias.
func (r *NeuralRegressor) Intercept() float64 {
	return r.b2
}

// Coef returns the output-layer weights.
func (r *NeuralRegressor) Coef() []float64 {
	c := make([]float64, len(r.w2))
	copy(c, r.w2)
	return c
}

// Trace returns the per-epoch loss history of the last fit.
func (r *NeuralRegressor) Trace() TrainingTrace {
	return r.trace
}

// Weights exports the trained parameters for persistence.
func (r *NeuralRegressor) Weights() Weights {
	h, n := r.w1.Dims()
	w := Weights{
		Intercept: r.b2,
		Coef:      r.Coef(),
		Hidden: &HiddenWeights{
			Width:  h,
			Inputs: n,
			W1:     append([]float64(nil), r.w1.RawMatrix().Data...),
			B1:     append([]float64(nil), r.b1...),
		},
	}
	return w
}

// SetWeights restores trained parameters, marking the model ready for
// inference without a new fit.
func (r *NeuralRegressor) SetWeights(w Weights) error {
	if w.Hidden == nil {
		return ErrNoHiddenWeights
	}
	r.w1 = mat.NewDense(w.Hidden.Width, w.Hidden.Inputs, append([]float64(nil), w.Hidden.W1...))
	r.b1 = append([]float64(nil), w.Hidden.B1...)
	r.w2 = append([]float64(nil), w.Coef...)
	r.b2 = w.Intercept
	r.trained = true
	return nil
}
