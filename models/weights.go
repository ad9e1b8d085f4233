package models

import "errors"

var ErrNoHiddenWeights = errors.New("weights carry no hidden layer")

// HiddenWeights is the serialized hidden layer of a neural regressor, with
// W1 stored row-major as width x inputs.
type HiddenWeights struct {
	Width  int       `json:"width"`
	Inputs int       `json:"inputs"`
	W1     []float64 `json:"w1"`
	B1     []float64 `json:"b1"`
}

// Weights is the serializable parameter set of a trained model. Hidden is
// nil for linear models.
type Weights struct {
	Intercept float64        `json:"intercept"`
	Coef      []float64      `json:"coef"`
	Hidden    *HiddenWeights `json:"hidden,omitempty"`
}

// Load reconstructs a ready-for-inference model from serialized weights.
func (w Weights) Load() (Model, error) {
	if w.Hidden == nil {
		reg, err := NewSGDRegressor(nil)
		if err != nil {
			return nil, err
		}
		reg.SetWeights(w)
		return reg, nil
	}
	reg, err := NewNeuralRegressor(nil)
	if err != nil {
		return nil, err
	}
	if err := reg.SetWeights(w); err != nil {
		return nil, err
	}
	return reg, nil
}
