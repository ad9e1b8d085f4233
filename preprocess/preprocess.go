// Package preprocess turns raw daily order records into model-ready feature
// matrices: cleaning, gap imputation, outlier clipping, calendar and lag
// feature engineering, sequence windowing, and reversible normalization.
package preprocess

import (
	"errors"
	"fmt"
	"time"

	"github.com/demandcast/demandcast/orderseries"
)

var (
	ErrInsufficientData = errors.New("insufficient data for preprocessing")
	ErrPreprocessFailed = errors.New("preprocessing failed")
	ErrLengthMismatch   = errors.New("input slices have different lengths")
	ErrNoRows           = errors.New("no rows to scale")
)

const (
	DefaultMinSamples     = 30
	DefaultSequenceWindow = 30
)

// Config is the preprocessing configuration surface.
type Config struct {
	MissingStrategy MissingStrategy `yaml:"missing_strategy" json:"missing_strategy"`
	Normalization   Normalization   `yaml:"normalization" json:"normalization"`

	// OutlierFactor is the Tukey k applied to the IQR fences. Values beyond
	// the fences are clipped, not removed.
	OutlierFactor float64 `yaml:"outlier_factor" json:"outlier_factor"`

	Lags           []int           `yaml:"lags" json:"lags"`
	RollingWindows []RollingWindow `yaml:"rolling_windows" json:"rolling_windows"`

	// SequenceWindow is the trailing-history length required per training
	// row. The first SequenceWindow rows are dropped since they lack full
	// history.
	SequenceWindow int `yaml:"sequence_window" json:"sequence_window"`

	// MinSamples is the minimum cleaned series length to proceed.
	MinSamples int `yaml:"min_samples" json:"min_samples"`
}

// NewDefaultConfig returns the default preprocessing configuration.
func NewDefaultConfig() Config {
	return Config{
		MissingStrategy: MissingInterpolate,
		Normalization:   NormalizationZScore,
		OutlierFactor:   DefaultOutlierFactor,
		Lags:            []int{1, 7, 14},
		RollingWindows: []RollingWindow{
			{Window: 7, Agg: RollingMean},
			{Window: 7, Agg: RollingStd},
			{Window: 30, Agg: RollingMean},
		},
		SequenceWindow: DefaultSequenceWindow,
		MinSamples:     DefaultMinSamples,
	}
}

// Metadata summarizes what happened during one preprocessing run.
type Metadata struct {
	InputRecords int       `json:"input_records"`
	Dropped      int       `json:"dropped"`
	Imputed      int       `json:"imputed"`
	Clipped      int       `json:"clipped"`
	Rows         int       `json:"rows"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

// Result is the immutable output of one preprocessing run.
type Result struct {
	// Matrix rows are sorted ascending by date, one row per day after the
	// sequence window warmup.
	Matrix       [][]float64
	Target       []float64
	Dates        []time.Time
	FeatureNames []string
	Scaling      *ScalingParameters
	Meta         Metadata

	// History is the full cleaned order-count series before windowing,
	// used by the iterative forecast loop for lag context.
	History []float64

	// LastRecord is the most recent cleaned record, whose business ratios
	// are carried forward for horizon rows.
	LastRecord orderseries.DailyRecord
}

// Preprocessor runs the cleaning and feature pipeline. One instance is safe
// to reuse across runs; each Run produces its own scaling parameters.
type Preprocessor struct {
	cfg Config
}

func New(cfg Config) *Preprocessor {
	if cfg.OutlierFactor <= 0 {
		cfg.OutlierFactor = DefaultOutlierFactor
	}
	if cfg.SequenceWindow <= 0 {
		cfg.SequenceWindow = DefaultSequenceWindow
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultMinSamples
	}
	if cfg.Normalization == "" {
		cfg.Normalization = NormalizationZScore
	}
	return &Preprocessor{cfg: cfg}
}

func (p *Preprocessor) Config() Config {
	return p.cfg
}

// Run executes the full pipeline on an unordered set of raw records.
func (p *Preprocessor) Run(records []orderseries.DailyRecord) (*Result, error) {
	series, err := orderseries.New(records)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrInsufficientData, err)
	}

	cleaned, imputed, err := p.fillGaps(series)
	if err != nil {
		return nil, fmt.Errorf("%w, gap fill: %w", ErrPreprocessFailed, err)
	}

	if len(cleaned) < p.cfg.MinSamples {
		return nil, fmt.Errorf("%d cleaned samples, need %d, %w", len(cleaned), p.cfg.MinSamples, ErrInsufficientData)
	}

	clipped := p.clipFields(cleaned)

	target := make([]float64, len(cleaned))
	for i, r := range cleaned {
		target[i] = float64(r.OrderCount)
	}

	names := p.cfg.FeatureNames()
	matrix := make([][]float64, 0, len(cleaned))
	dates := make([]time.Time, 0, len(cleaned))
	rows := make([]float64, 0, len(cleaned))

	warmup := p.cfg.SequenceWindow
	if warmup >= len(cleaned) {
		return nil, fmt.Errorf("sequence window %d with %d samples, %w", warmup, len(cleaned), ErrInsufficientData)
	}

	for i := warmup; i < len(cleaned); i++ {
		row := p.cfg.buildRow(cleaned[i].Date, &cleaned[i], target[:i])
		if len(row) != len(names) {
			return nil, fmt.Errorf("row has %d values for %d features, %w", len(row), len(names), ErrPreprocessFailed)
		}
		matrix = append(matrix, row)
		rows = append(rows, target[i])
		dates = append(dates, cleaned[i].Date)
	}

	scaling, err := NewScalingParameters(p.cfg.Normalization, matrix, rows)
	if err != nil {
		return nil, fmt.Errorf("%w, scaling: %w", ErrPreprocessFailed, err)
	}
	scaling.Transform(matrix, rows)

	return &Result{
		Matrix:       matrix,
		Target:       rows,
		Dates:        dates,
		FeatureNames: names,
		Scaling:      scaling,
		History:      target,
		LastRecord:   cleaned[len(cleaned)-1],
		Meta: Metadata{
			InputRecords: len(records),
			Dropped:      series.Dropped,
			Imputed:      imputed,
			Clipped:      clipped,
			Rows:         len(matrix),
			Start:        cleaned[0].Date,
			End:          cleaned[len(cleaned)-1].Date,
		},
	}, nil
}

// fillGaps expands the series onto a contiguous day grid and imputes the
// numeric fields of missing days with the configured strategy.
func (p *Preprocessor) fillGaps(series *orderseries.OrderSeries) ([]orderseries.DailyRecord, int, error) {
	first := series.Records[0].Date
	last := series.Records[len(series.Records)-1].Date
	nDays := int(last.Sub(first).Hours()/24) + 1

	grid := make([]orderseries.DailyRecord, nDays)
	present := make([]bool, nDays)
	byDate := make(map[time.Time]orderseries.DailyRecord, series.Len())
	for _, r := range series.Records {
		byDate[r.Date] = r
	}

	lastCategory := series.Records[0].Category
	lastGeography := series.Records[0].Geography
	for i := 0; i < nDays; i++ {
		date := first.AddDate(0, 0, i)
		if r, ok := byDate[date]; ok {
			grid[i] = r
			present[i] = true
			lastCategory = r.Category
			lastGeography = r.Geography
			continue
		}
		grid[i] = orderseries.DailyRecord{
			Date:      date,
			Category:  lastCategory,
			Geography: lastGeography,
			IsHoliday: orderseries.IsUSHoliday(date),
		}
	}

	fields := []struct {
		name string
		get  func(*orderseries.DailyRecord) float64
		set  func(*orderseries.DailyRecord, float64)
	}{
		{"order_count", func(r *orderseries.DailyRecord) float64 { return float64(r.OrderCount) },
			func(r *orderseries.DailyRecord, v float64) { r.OrderCount = int(v + 0.5) }},
		{"submission_count", func(r *orderseries.DailyRecord) float64 { return float64(r.SubmissionCount) },
			func(r *orderseries.DailyRecord, v float64) { r.SubmissionCount = int(v + 0.5) }},
		{"revenue", func(r *orderseries.DailyRecord) float64 { return r.Revenue },
			func(r *orderseries.DailyRecord, v float64) { r.Revenue = v }},
		{"avg_price", func(r *orderseries.DailyRecord) float64 { return r.AvgPrice },
			func(r *orderseries.DailyRecord, v float64) { r.AvgPrice = v }},
	}

	values := make([]float64, nDays)
	for _, f := range fields {
		for i := range grid {
			values[i] = f.get(&grid[i])
		}
		if _, err := Impute(values, present, p.cfg.MissingStrategy); err != nil {
			return nil, 0, fmt.Errorf("field %q: %w", f.name, err)
		}
		for i := range grid {
			if !present[i] {
				f.set(&grid[i], values[i])
			}
		}
	}

	missingDays := 0
	for _, ok := range present {
		if !ok {
			missingDays++
		}
	}
	return grid, missingDays, nil
}

// clipFields applies IQR clipping to each numeric field independently.
func (p *Preprocessor) clipFields(records []orderseries.DailyRecord) int {
	n := len(records)
	orders := make([]float64, n)
	submissions := make([]float64, n)
	revenue := make([]float64, n)
	price := make([]float64, n)
	for i, r := range records {
		orders[i] = float64(r.OrderCount)
		submissions[i] = float64(r.SubmissionCount)
		revenue[i] = r.Revenue
		price[i] = r.AvgPrice
	}

	clipped := 0
	clipped += ClipOutliers(orders, p.cfg.OutlierFactor)
	clipped += ClipOutliers(submissions, p.cfg.OutlierFactor)
	clipped += ClipOutliers(revenue, p.cfg.OutlierFactor)
	clipped += ClipOutliers(price, p.cfg.OutlierFactor)

	for i := range records {
		records[i].OrderCount = int(orders[i] + 0.5)
		records[i].SubmissionCount = int(submissions[i] + 0.5)
		records[i].Revenue = revenue[i]
		records[i].AvgPrice = price[i]
	}
	return clipped
}
