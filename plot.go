package demandcast

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/demandcast/demandcast/forecast"
	"github.com/demandcast/demandcast/orderseries"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineTSeries generates an echart multi-line chart for some arbitrary
// time/value combination. The input y is a slice of series that must have
// the same length as the input time slice.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	lineData := make([][]opts.LineData, len(y))

	filteredT := make([]time.Time, 0, len(t))
	for i := 0; i < len(y); i++ {
		lineData[i] = make([]opts.LineData, 0, len(y[i]))
		for j := 0; j < len(y[i]); j++ {
			if math.IsNaN(y[i][j]) {
				continue
			}
			if i == 0 {
				filteredT = append(filteredT, t[j])
			}
			lineData[i] = append(lineData[i], opts.LineData{Value: y[i][j]})
		}
	}

	line = line.SetXAxis(filteredT)
	for i, series := range seriesName {
		line = line.AddSeries(series, lineData[i])
	}

	return line
}

// LineForecast generates an echart line chart plotting the historical order
// counts followed by the forecasted values with their confidence.
func LineForecast(history []orderseries.DailyRecord, res *forecast.Result) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Demand Forecast",
			},
		),
	)

	t := make([]time.Time, 0, len(history)+len(res.Days))
	lineDataActual := make([]opts.LineData, 0, len(history))
	lineDataForecast := make([]opts.LineData, 0, len(res.Days))
	lineDataConfidence := make([]opts.LineData, 0, len(res.Days))

	for _, r := range history {
		t = append(t, r.Date)
		lineDataActual = append(lineDataActual, opts.LineData{Value: float64(r.OrderCount)})
		lineDataForecast = append(lineDataForecast, opts.LineData{Value: "-"})
		lineDataConfidence = append(lineDataConfidence, opts.LineData{Value: "-"})
	}
	for _, d := range res.Days {
		t = append(t, d.Date)
		lineDataActual = append(lineDataActual, opts.LineData{Value: "-"})
		lineDataForecast = append(lineDataForecast, opts.LineData{Value: d.Value})
		lineDataConfidence = append(lineDataConfidence, opts.LineData{Value: d.Confidence})
	}

	line.SetXAxis(t).
		AddSeries("Actual", lineDataActual).
		AddSeries("Forecast", lineDataForecast).
		AddSeries("Confidence", lineDataConfidence)
	return line
}

// PlotForecast uses the Apache Echarts library to generate an html file
// showing the forecast against history plus the weekly seasonal pattern.
func (e *Engine) PlotForecast(path string, res *forecast.Result) error {
	if e.closed {
		return ErrClosed
	}
	if len(e.history) == 0 {
		return ErrNoHistory
	}

	page := components.NewPage()
	page.AddCharts(LineForecast(e.history, res))

	if e.profile != nil {
		weekStart := orderseries.Day(time.Now().UTC())
		for weekStart.Weekday() != time.Sunday {
			weekStart = weekStart.AddDate(0, 0, -1)
		}
		weekT := make([]time.Time, 7)
		weekly := make([]float64, 7)
		for i := 0; i < 7; i++ {
			weekT[i] = weekStart.AddDate(0, 0, i)
			weekly[i] = e.profile.WeeklyPattern[i]
		}
		page.AddCharts(
			LineTSeries(
				"Weekly Pattern",
				[]string{"Multiplier"},
				weekT,
				[][]float64{weekly},
			),
		)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create plot file, %w", err)
	}
	defer file.Close()
	return page.Render(io.MultiWriter(file))
}
