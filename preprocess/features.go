package preprocess

import (
	"fmt"
	"math"
	"time"

	"github.com/demandcast/demandcast/orderseries"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RollingAgg names a trailing-window aggregation.
type RollingAgg string

const (
	RollingMean RollingAgg = "mean"
	RollingSum  RollingAgg = "sum"
	RollingMin  RollingAgg = "min"
	RollingMax  RollingAgg = "max"
	RollingStd  RollingAgg = "std"
)

// RollingWindow configures one trailing-window aggregate feature over the
// order count series.
type RollingWindow struct {
	Window int        `yaml:"window" json:"window"`
	Agg    RollingAgg `yaml:"agg" json:"agg"`
	Name   string     `yaml:"name" json:"name"`
}

func (w RollingWindow) label() string {
	if w.Name != "" {
		return w.Name
	}
	return fmt.Sprintf("roll_%s_%d", w.Agg, w.Window)
}

// FeatureNames returns the deterministic column order of the feature matrix
// for this configuration.
func (c *Config) FeatureNames() []string {
	names := []string{
		"day_of_week", "day_of_month", "day_of_year", "week_of_year",
		"month", "quarter", "year",
		"dow_sin", "dow_cos", "month_sin", "month_cos", "doy_sin", "doy_cos",
		"is_holiday",
		"submissions", "revenue", "avg_price",
		"conversion_rate", "revenue_per_order",
	}
	for _, lag := range c.Lags {
		names = append(names, fmt.Sprintf("lag_%d", lag))
	}
	for _, w := range c.RollingWindows {
		names = append(names, w.label())
	}
	return names
}

// buildRow assembles the feature vector for one date. history holds order
// counts strictly before the date so lag and rolling features never leak the
// day's own target. rec carries the day's observed business fields; for
// horizon dates beyond observed data the caller passes the last known record
// and its ratios are carried forward.
func (c *Config) buildRow(date time.Time, rec *orderseries.DailyRecord, history []float64) []float64 {
	row := make([]float64, 0, len(c.FeatureNames()))

	dow := float64(date.Weekday())
	_, week := date.ISOWeek()
	doy := float64(date.YearDay())
	month := float64(date.Month()) - 1

	row = append(row,
		dow,
		float64(date.Day()),
		doy,
		float64(week),
		month,
		math.Floor(month/3),
		float64(date.Year()),
	)

	// cyclical encodings avoid the discontinuity at period boundaries
	row = append(row,
		math.Sin(2*math.Pi*dow/7), math.Cos(2*math.Pi*dow/7),
		math.Sin(2*math.Pi*month/12), math.Cos(2*math.Pi*month/12),
		math.Sin(2*math.Pi*doy/365), math.Cos(2*math.Pi*doy/365),
	)

	holiday := 0.0
	if rec != nil && rec.IsHoliday || orderseries.IsUSHoliday(date) {
		holiday = 1.0
	}
	row = append(row, holiday)

	var submissions, revenue, avgPrice float64
	var orders float64
	if rec != nil {
		submissions = float64(rec.SubmissionCount)
		revenue = rec.Revenue
		avgPrice = rec.AvgPrice
		orders = float64(rec.OrderCount)
	}
	row = append(row, submissions, revenue, avgPrice)

	conversion := 0.0
	if submissions > 0 {
		conversion = orders / submissions
	}
	revenuePerOrder := 0.0
	if orders > 0 {
		revenuePerOrder = revenue / orders
	}
	row = append(row, conversion, revenuePerOrder)

	for _, lag := range c.Lags {
		v := 0.0
		if lag > 0 && lag <= len(history) {
			v = history[len(history)-lag]
		}
		row = append(row, v)
	}

	for _, w := range c.RollingWindows {
		row = append(row, rollingAggregate(history, w))
	}

	return row
}

// rollingAggregate computes the trailing-window aggregate over history,
// using only the available days when the window extends before the series
// start.
func rollingAggregate(history []float64, w RollingWindow) float64 {
	if len(history) == 0 || w.Window <= 0 {
		return 0
	}
	start := len(history) - w.Window
	if start < 0 {
		start = 0
	}
	window := history[start:]

	switch w.Agg {
	case RollingSum:
		return floats.Sum(window)
	case RollingMin:
		return floats.Min(window)
	case RollingMax:
		return floats.Max(window)
	case RollingStd:
		if len(window) < 2 {
			return 0
		}
		return stat.StdDev(window, nil)
	default:
		return stat.Mean(window, nil)
	}
}

// FutureRow builds and normalizes a feature row for a horizon date using the
// supplied order-count history and the last observed record for carried
// business ratios. Used by the iterative multi-day forecast loop.
func (p *Preprocessor) FutureRow(date time.Time, history []float64, last orderseries.DailyRecord, scaling *ScalingParameters) []float64 {
	rec := last
	rec.Date = date
	rec.IsHoliday = orderseries.IsUSHoliday(date)
	row := p.cfg.buildRow(date, &rec, history)
	if scaling == nil {
		return row
	}
	return scaling.TransformRow(row)
}
