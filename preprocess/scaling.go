package preprocess

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Normalization selects how feature columns and the target are scaled.
type Normalization string

const (
	NormalizationZScore Normalization = "zscore"
	NormalizationMinMax Normalization = "minmax"
	NormalizationRobust Normalization = "robust"
)

var (
	ErrUnknownNormalization = errors.New("unknown normalization method")
	ErrFieldIndexRange      = errors.New("field index out of range")
)

// FieldScale captures the per-field statistics recorded while normalizing,
// required to invert predictions back to raw units.
type FieldScale struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	IQR    float64 `json:"iqr"`
}

// ScalingParameters holds the scales for every feature column plus the
// target. Created once per preprocessing run and never mutated afterwards.
type ScalingParameters struct {
	Method Normalization `json:"method"`
	Fields []FieldScale  `json:"fields"`
	Target FieldScale    `json:"target"`
}

// degenerateScaleRatio marks a spread as effectively zero relative to the
// field magnitude. A column constant up to float jitter must scale as a
// constant, not divide by the jitter.
const degenerateScaleRatio = 1e-9

func degenerateScale(spread, magnitude float64) bool {
	return math.IsNaN(spread) || spread < degenerateScaleRatio*math.Max(math.Abs(magnitude), 1)
}

func newFieldScale(values []float64) FieldScale {
	mean, std := stat.MeanStdDev(values, nil)
	if degenerateScale(std, mean) {
		std = 1.0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	q1, _, q3 := quartiles(sorted)
	iqr := q3 - q1
	median := (q1 + q3) / 2
	if degenerateScale(iqr, median) {
		iqr = 1.0
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return FieldScale{
		Mean:   mean,
		Std:    std,
		Min:    minVal,
		Max:    maxVal,
		Median: median,
		IQR:    iqr,
	}
}

func (f FieldScale) apply(method Normalization, v float64) float64 {
	switch method {
	case NormalizationZScore:
		return (v - f.Mean) / f.Std
	case NormalizationMinMax:
		if degenerateScale(f.Max-f.Min, f.Max) {
			return 0.0
		}
		return (v - f.Min) / (f.Max - f.Min)
	case NormalizationRobust:
		return (v - f.Median) / f.IQR
	}
	return v
}

func (f FieldScale) invert(method Normalization, v float64) float64 {
	switch method {
	case NormalizationZScore:
		return v*f.Std + f.Mean
	case NormalizationMinMax:
		if degenerateScale(f.Max-f.Min, f.Max) {
			return f.Min
		}
		return v*(f.Max-f.Min) + f.Min
	case NormalizationRobust:
		return v*f.IQR + f.Median
	}
	return v
}

// NewScalingParameters computes scales for each feature column of the row
// matrix and for the target.
func NewScalingParameters(method Normalization, matrix [][]float64, target []float64) (*ScalingParameters, error) {
	switch method {
	case NormalizationZScore, NormalizationMinMax, NormalizationRobust:
	default:
		return nil, fmt.Errorf("%q, %w", method, ErrUnknownNormalization)
	}
	if len(matrix) == 0 {
		return nil, ErrNoRows
	}

	nFields := len(matrix[0])
	fields := make([]FieldScale, nFields)
	col := make([]float64, len(matrix))
	for j := 0; j < nFields; j++ {
		for i := range matrix {
			col[i] = matrix[i][j]
		}
		fields[j] = newFieldScale(col)
	}

	return &ScalingParameters{
		Method: method,
		Fields: fields,
		Target: newFieldScale(target),
	}, nil
}

// Transform normalizes the row matrix and target in place.
func (s *ScalingParameters) Transform(matrix [][]float64, target []float64) {
	for i := range matrix {
		for j := range matrix[i] {
			matrix[i][j] = s.Fields[j].apply(s.Method, matrix[i][j])
		}
	}
	for i := range target {
		target[i] = s.Target.apply(s.Method, target[i])
	}
}

// TransformRow normalizes a single feature row, returning a new slice.
func (s *ScalingParameters) TransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j := range row {
		out[j] = s.Fields[j].apply(s.Method, row[j])
	}
	return out
}

// InverseTransform recovers the raw-unit value of a normalized feature at
// the given field index.
func (s *ScalingParameters) InverseTransform(v float64, fieldIndex int) (float64, error) {
	if fieldIndex < 0 || fieldIndex >= len(s.Fields) {
		return 0, fmt.Errorf("index %d with %d fields, %w", fieldIndex, len(s.Fields), ErrFieldIndexRange)
	}
	return s.Fields[fieldIndex].invert(s.Method, v), nil
}

// TransformTarget normalizes a raw target value.
func (s *ScalingParameters) TransformTarget(v float64) float64 {
	return s.Target.apply(s.Method, v)
}

// InverseTarget recovers a raw-unit prediction from a normalized model
// output.
func (s *ScalingParameters) InverseTarget(v float64) float64 {
	return s.Target.invert(s.Method, v)
}
