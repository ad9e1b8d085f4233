package preprocess

import (
	"math"
	"testing"
	"time"

	"github.com/demandcast/demandcast/orderseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords(n int) []orderseries.DailyRecord {
	dates := orderseries.Dates(n, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return orderseries.Records(dates, orderseries.Flat(n, 50).WeekendBoost(dates, 1.5))
}

func TestRunRowCount(t *testing.T) {
	testData := map[string]struct {
		days   int
		window int
		rows   int
		err    error
	}{
		"window dropped from row count": {
			120, 30, 90, nil,
		},
		"small window": {
			60, 7, 53, nil,
		},
		"too few samples": {
			10, 30, 0, ErrInsufficientData,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.SequenceWindow = td.window
			p := New(cfg)

			res, err := p.Run(testRecords(td.days))
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, res.Matrix, td.rows)
			assert.Len(t, res.Target, td.rows)
			assert.Len(t, res.Dates, td.rows)
			assert.Equal(t, len(res.FeatureNames), len(res.Matrix[0]))
		})
	}
}

func TestRunFillsGaps(t *testing.T) {
	records := testRecords(60)
	// drop a week in the middle
	gapped := append([]orderseries.DailyRecord{}, records[:20]...)
	gapped = append(gapped, records[27:]...)

	p := New(NewDefaultConfig())
	res, err := p.Run(gapped)
	require.NoError(t, err)

	assert.Equal(t, 7, res.Meta.Imputed)
	// grid is contiguous regardless of the gap
	assert.Equal(t, 60-res.Meta.Rows, NewDefaultConfig().SequenceWindow)
	for i := 1; i < len(res.Dates); i++ {
		assert.Equal(t, res.Dates[i-1].AddDate(0, 0, 1), res.Dates[i])
	}
}

func TestImpute(t *testing.T) {
	testData := map[string]struct {
		values   []float64
		present  []bool
		strategy MissingStrategy
		expected []float64
		imputed  int
		err      error
	}{
		"interpolate between neighbors": {
			[]float64{2, 0, 0, 8},
			[]bool{true, false, false, true},
			MissingInterpolate,
			[]float64{2, 4, 6, 8},
			2, nil,
		},
		"forward fill": {
			[]float64{3, 0, 0, 9},
			[]bool{true, false, false, true},
			MissingForwardFill,
			[]float64{3, 3, 3, 9},
			2, nil,
		},
		"backward fill": {
			[]float64{3, 0, 0, 9},
			[]bool{true, false, false, true},
			MissingBackwardFill,
			[]float64{3, 9, 9, 9},
			2, nil,
		},
		"mean": {
			[]float64{2, 0, 10},
			[]bool{true, false, true},
			MissingMean,
			[]float64{2, 6, 10},
			1, nil,
		},
		"empty strategy defaults to interpolate": {
			[]float64{2, 0, 4},
			[]bool{true, false, true},
			"",
			[]float64{2, 3, 4},
			1, nil,
		},
		"forward fill leading gap uses nearest": {
			[]float64{0, 5, 7},
			[]bool{false, true, true},
			MissingForwardFill,
			[]float64{5, 5, 7},
			1, nil,
		},
		"nothing missing": {
			[]float64{1, 2},
			[]bool{true, true},
			MissingInterpolate,
			[]float64{1, 2},
			0, nil,
		},
		"unknown strategy": {
			[]float64{1},
			[]bool{true},
			"bogus",
			nil,
			0, ErrUnknownMissingStrategy,
		},
		"length mismatch": {
			[]float64{1, 2},
			[]bool{true},
			MissingInterpolate,
			nil,
			0, ErrLengthMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			n, err := Impute(td.values, td.present, td.strategy)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.imputed, n)
			assert.Equal(t, td.expected, td.values)
		})
	}
}

func TestClipOutliers(t *testing.T) {
	values := []float64{10, 11, 9, 10, 12, 10, 11, 9, 10, 500}
	clipped := ClipOutliers(values, DefaultOutlierFactor)
	assert.Equal(t, 1, clipped)
	for _, v := range values {
		assert.Less(t, v, 50.0)
	}
}

func TestClipOutliersIdempotent(t *testing.T) {
	values := []float64{10, 11, 9, 10, 12, 10, 11, 9, 10, 500, -200}
	ClipOutliers(values, DefaultOutlierFactor)

	first := make([]float64, len(values))
	copy(first, values)

	again := ClipOutliers(values, DefaultOutlierFactor)
	assert.Equal(t, 0, again)
	assert.Equal(t, first, values)
}

func TestClipOutliersSmallSample(t *testing.T) {
	values := []float64{1, 1000, 3}
	assert.Equal(t, 0, ClipOutliers(values, DefaultOutlierFactor))
	assert.Equal(t, []float64{1, 1000, 3}, values)
}

func TestScalingRoundtrip(t *testing.T) {
	matrix := [][]float64{
		{1, 10, 0.5},
		{2, 20, 0.7},
		{3, 30, 0.9},
		{4, 40, 1.1},
	}
	target := []float64{100, 110, 120, 130}

	for _, method := range []Normalization{NormalizationZScore, NormalizationMinMax, NormalizationRobust} {
		t.Run(string(method), func(t *testing.T) {
			rows := make([][]float64, len(matrix))
			for i := range matrix {
				rows[i] = append([]float64{}, matrix[i]...)
			}
			y := append([]float64{}, target...)

			scaling, err := NewScalingParameters(method, rows, y)
			require.NoError(t, err)
			scaling.Transform(rows, y)

			for i := range y {
				assert.InDelta(t, target[i], scaling.InverseTarget(y[i]), 1e-9)
				for j := range rows[i] {
					raw, err := scaling.InverseTransform(rows[i][j], j)
					require.NoError(t, err)
					assert.InDelta(t, matrix[i][j], raw, 1e-9)
				}
			}
		})
	}
}

func TestScalingJitterConstantColumn(t *testing.T) {
	// a column constant up to float jitter must scale like a constant;
	// dividing by a ~1e-13 spread would blow transformed values up to ~1e12
	n := 40
	matrix := make([][]float64, n)
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		matrix[i] = []float64{5 + float64(i)*1e-13, float64(i)}
		target[i] = float64(i)
	}

	for _, method := range []Normalization{NormalizationZScore, NormalizationMinMax, NormalizationRobust} {
		t.Run(string(method), func(t *testing.T) {
			scaling, err := NewScalingParameters(method, matrix, target)
			require.NoError(t, err)

			for i := range matrix {
				row := scaling.TransformRow(matrix[i])
				for j, v := range row {
					assert.Less(t, math.Abs(v), 10.0, "row %d field %d", i, j)
				}
			}
		})
	}
}

func TestScalingErrors(t *testing.T) {
	_, err := NewScalingParameters("bogus", [][]float64{{1}}, []float64{1})
	assert.ErrorIs(t, err, ErrUnknownNormalization)

	_, err = NewScalingParameters(NormalizationZScore, nil, nil)
	assert.ErrorIs(t, err, ErrNoRows)

	scaling, err := NewScalingParameters(NormalizationZScore, [][]float64{{1}, {2}}, []float64{1, 2})
	require.NoError(t, err)
	_, err = scaling.InverseTransform(0, 5)
	assert.ErrorIs(t, err, ErrFieldIndexRange)
}

func TestFeatureNames(t *testing.T) {
	cfg := NewDefaultConfig()
	names := cfg.FeatureNames()

	assert.Contains(t, names, "day_of_week")
	assert.Contains(t, names, "dow_sin")
	assert.Contains(t, names, "is_holiday")
	assert.Contains(t, names, "conversion_rate")
	assert.Contains(t, names, "lag_7")
	assert.Contains(t, names, "roll_mean_7")
	assert.Contains(t, names, "roll_std_7")

	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		_, dup := seen[n]
		assert.False(t, dup, "duplicate feature %q", n)
		seen[n] = struct{}{}
	}
}

func TestFutureRowMatchesLayout(t *testing.T) {
	p := New(NewDefaultConfig())
	res, err := p.Run(testRecords(90))
	require.NoError(t, err)

	next := res.LastRecord.Date.AddDate(0, 0, 1)
	row := p.FutureRow(next, res.History, res.LastRecord, res.Scaling)
	assert.Len(t, row, len(res.FeatureNames))
}
