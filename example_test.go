package demandcast

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/demandcast/demandcast/comeback"
	"github.com/demandcast/demandcast/forecast"
	"github.com/demandcast/demandcast/orderseries"
)

func generateExampleHistory() []orderseries.DailyRecord {
	// 120 days of weekend-heavy demand with a comeback spike in the middle
	n := 120
	dates := orderseries.Dates(n, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	curve := orderseries.Flat(n, 80).
		WeekendBoost(dates, 2.0).
		Spike(dates, dates[n/2], 2.5, 3.0).
		Noise(4.0)
	return orderseries.Records(dates, curve)
}

func Example_forecastWithComeback() {
	records := generateExampleHistory()
	events := []comeback.EventRecord{
		{
			OccurredAt: records[len(records)/2].Date,
			Impact:     comeback.ImpactMetrics{PeakIncrease: 2.5, DurationDays: 10},
		},
	}

	engine := New(nil)
	defer engine.Close()

	if _, err := engine.Fit(records); err != nil {
		panic(err)
	}

	next, err := engine.PredictNextEvent(events, nil, nil)
	if err != nil {
		panic(err)
	}

	res, err := engine.Forecast(14, []forecast.EventImpact{engine.ImpactOn(next.Date, events)})
	if err != nil {
		panic(err)
	}
	if len(res.Days) != 14 {
		panic(fmt.Sprintf("expected 14 forecast days, got %d", len(res.Days)))
	}

	path := filepath.Join(os.TempDir(), "demandcast_forecast.html")
	if err := engine.PlotForecast(path, res); err != nil {
		panic(err)
	}
	// Output:
}
