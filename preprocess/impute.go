package preprocess

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// MissingStrategy selects how gaps in a daily series are filled.
type MissingStrategy string

const (
	MissingForwardFill  MissingStrategy = "forward_fill"
	MissingBackwardFill MissingStrategy = "backward_fill"
	MissingInterpolate  MissingStrategy = "interpolate"
	MissingMean         MissingStrategy = "mean"
)

var ErrUnknownMissingStrategy = errors.New("unknown missing-value strategy")

// Impute fills positions where present[i] is false. The default strategy is
// linear interpolation between the nearest valid neighbors; when no valid
// neighbor exists on one side the nearest available side is used, and 0 when
// none exists at all. Returns the number of imputed values.
func Impute(values []float64, present []bool, strategy MissingStrategy) (int, error) {
	if len(values) != len(present) {
		return 0, fmt.Errorf("values len %d, present len %d, %w", len(values), len(present), ErrLengthMismatch)
	}

	switch strategy {
	case MissingForwardFill, MissingBackwardFill, MissingInterpolate, MissingMean:
	case "":
		strategy = MissingInterpolate
	default:
		return 0, fmt.Errorf("%q, %w", strategy, ErrUnknownMissingStrategy)
	}

	missing := 0
	for _, p := range present {
		if !p {
			missing++
		}
	}
	if missing == 0 {
		return 0, nil
	}

	switch strategy {
	case MissingForwardFill:
		fillDirectional(values, present, false)
	case MissingBackwardFill:
		fillDirectional(values, present, true)
	case MissingMean:
		fillMean(values, present)
	default:
		fillInterpolate(values, present)
	}
	return missing, nil
}

// fillDirectional carries the last valid value forward, or the next valid
// value backward. Leading (or trailing) gaps fall back to the opposite side,
// then to 0.
func fillDirectional(values []float64, present []bool, backward bool) {
	n := len(values)
	idx := func(i int) int {
		if backward {
			return n - 1 - i
		}
		return i
	}

	lastValid := -1
	for i := 0; i < n; i++ {
		j := idx(i)
		if present[j] {
			lastValid = j
			continue
		}
		if lastValid >= 0 {
			values[j] = values[lastValid]
			continue
		}
		if k := nearestValid(present, j); k >= 0 {
			values[j] = values[k]
		} else {
			values[j] = 0
		}
	}
}

func fillInterpolate(values []float64, present []bool) {
	n := len(values)
	for i := 0; i < n; i++ {
		if present[i] {
			continue
		}
		prev, next := -1, -1
		for j := i - 1; j >= 0; j-- {
			if present[j] {
				prev = j
				break
			}
		}
		for j := i + 1; j < n; j++ {
			if present[j] {
				next = j
				break
			}
		}

		switch {
		case prev >= 0 && next >= 0:
			frac := float64(i-prev) / float64(next-prev)
			values[i] = values[prev] + frac*(values[next]-values[prev])
		case prev >= 0:
			values[i] = values[prev]
		case next >= 0:
			values[i] = values[next]
		default:
			values[i] = 0
		}
	}
}

func fillMean(values []float64, present []bool) {
	valid := make([]float64, 0, len(values))
	for i, p := range present {
		if p {
			valid = append(valid, values[i])
		}
	}
	mean := 0.0
	if len(valid) > 0 {
		mean = stat.Mean(valid, nil)
	}
	for i, p := range present {
		if !p {
			values[i] = mean
		}
	}
}

func nearestValid(present []bool, i int) int {
	for d := 1; d < len(present); d++ {
		if i-d >= 0 && present[i-d] {
			return i - d
		}
		if i+d < len(present) && present[i+d] {
			return i + d
		}
	}
	return -1
}
