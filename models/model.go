// Package models is a collection of regression implementations trained by
// minibatch gradient descent, used by the forecasting orchestrator and the
// hyperparameter optimizer.
package models

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoOptions         = errors.New("no initialized model options")
	ErrTargetLenMismatch = errors.New("target length does not match target rows")
	ErrNoTrainingMatrix  = errors.New("no training matrix")
	ErrNoTargetMatrix    = errors.New("no target matrix")
	ErrNoDesignMatrix    = errors.New("no design matrix for inference")
	ErrFeatureMismatch   = errors.New("number of features does not match number of model coefficients")
	ErrUntrainedModel    = errors.New("model has not been trained")
	ErrDiverged          = errors.New("training diverged to a non-finite loss")
)

// Model is the regression contract shared by the linear and neural
// implementations.
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}

// TrainingTrace records per-epoch progress of a gradient-descent fit.
type TrainingTrace struct {
	TrainLoss []float64
	ValLoss   []float64
	BestEpoch int
	Stopped   bool // true when early stopping triggered
}

func validateFitInput(x, y mat.Matrix) (int, int, error) {
	if emptyMatrix(x) {
		return 0, 0, ErrNoTrainingMatrix
	}
	if emptyMatrix(y) {
		return 0, 0, ErrNoTargetMatrix
	}
	m, n := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return 0, 0, ErrTargetLenMismatch
	}
	return m, n, nil
}

// emptyMatrix reports whether x carries no rows. NewMatrix returns a nil
// *mat.Dense on empty input, which survives a plain interface nil check.
func emptyMatrix(x mat.Matrix) bool {
	if x == nil {
		return true
	}
	if d, ok := x.(*mat.Dense); ok && d == nil {
		return true
	}
	m, _ := x.Dims()
	return m == 0
}

// NewMatrix converts a row-major slice matrix into a gonum Dense matrix.
func NewMatrix(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	n := len(rows[0])
	data := make([]float64, 0, len(rows)*n)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), n, data)
}

// NewTarget converts a target slice into a single-column matrix.
func NewTarget(y []float64) *mat.Dense {
	if len(y) == 0 {
		return nil
	}
	data := make([]float64, len(y))
	copy(data, y)
	return mat.NewDense(len(y), 1, data)
}
