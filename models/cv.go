package models

import (
	"errors"
)

var (
	ErrInsufficientSamples       = errors.New("insufficient samples for the determined folds")
	ErrInconsistentSampleLengths = errors.New("features or targets do not have the same number of samples")
)

// FoldDataset is one expanding-window cross-validation fold. Train always
// precedes test in time.
type FoldDataset struct {
	TrainX [][]float64
	TrainY []float64

	TestX [][]float64
	TestY []float64
}

// TimeSeriesCVSplit produces nFold expanding-window folds over time-ordered
// rows. Fold i trains on the first (i+1) blocks and tests on block i+2.
func TimeSeriesCVSplit(x [][]float64, y []float64, nFold int) ([]FoldDataset, error) {
	nSamples := len(x)
	if len(y) != nSamples {
		return nil, ErrInconsistentSampleLengths
	}

	foldSamp := nSamples / (nFold + 1)
	if foldSamp == 0 {
		return nil, ErrInsufficientSamples
	}

	folds := make([]FoldDataset, nFold)
	for i := 0; i < nFold; i++ {
		folds[i] = FoldDataset{
			TrainX: x[:(i+1)*foldSamp],
			TrainY: y[:(i+1)*foldSamp],
			TestX:  x[(i+1)*foldSamp : (i+2)*foldSamp],
			TestY:  y[(i+1)*foldSamp : (i+2)*foldSamp],
		}
	}
	return folds, nil
}

// HoldoutSplit splits time-ordered rows into a leading training set and a
// trailing holdout of the given fraction.
func HoldoutSplit(x [][]float64, y []float64, frac float64) (FoldDataset, error) {
	if len(x) != len(y) {
		return FoldDataset{}, ErrInconsistentSampleLengths
	}
	nHold := int(float64(len(y)) * frac)
	if nHold == 0 || len(y)-nHold < 2 {
		return FoldDataset{}, ErrInsufficientSamples
	}
	split := len(y) - nHold
	return FoldDataset{
		TrainX: x[:split],
		TrainY: y[:split],
		TestX:  x[split:],
		TestY:  y[split:],
	}, nil
}
