package orderseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyRecordValid(t *testing.T) {
	testData := map[string]struct {
		rec DailyRecord
		err error
	}{
		"valid": {
			DailyRecord{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), OrderCount: 3},
			nil,
		},
		"zero date": {
			DailyRecord{OrderCount: 3},
			ErrZeroDate,
		},
		"negative orders": {
			DailyRecord{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), OrderCount: -1},
			ErrNegativeCount,
		},
		"negative submissions": {
			DailyRecord{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), SubmissionCount: -2},
			ErrNegativeCount,
		},
		"negative revenue": {
			DailyRecord{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Revenue: -10},
			ErrNegativeValue,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := td.rec.Valid()
			if td.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestNew(t *testing.T) {
	d1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	testData := map[string]struct {
		records []DailyRecord
		err     error
		dates   []time.Time
		counts  []float64
		dropped int
	}{
		"no records": {
			nil,
			ErrNoRecords,
			nil, nil, 0,
		},
		"all invalid": {
			[]DailyRecord{{OrderCount: 3}},
			ErrNoRecords,
			nil, nil, 0,
		},
		"sorts ascending": {
			[]DailyRecord{
				{Date: d2, OrderCount: 2},
				{Date: d1, OrderCount: 1},
			},
			nil,
			[]time.Time{d1, d2},
			[]float64{1, 2},
			0,
		},
		"duplicate dates keep last": {
			[]DailyRecord{
				{Date: d1, OrderCount: 1},
				{Date: d1, OrderCount: 5},
			},
			nil,
			[]time.Time{d1},
			[]float64{5},
			0,
		},
		"drops invalid and truncates times": {
			[]DailyRecord{
				{Date: d1.Add(13 * time.Hour), OrderCount: 4},
				{Date: d2, OrderCount: -1},
			},
			nil,
			[]time.Time{d1},
			[]float64{4},
			1,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			series, err := New(td.records)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.dates, series.Dates())
			assert.Equal(t, td.counts, series.Counts())
			assert.Equal(t, td.dropped, series.Dropped)
		})
	}
}

func TestTail(t *testing.T) {
	dates := Dates(10, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	series, err := New(Records(dates, Flat(10, 5)))
	require.NoError(t, err)

	assert.Len(t, series.Tail(3), 3)
	assert.Equal(t, dates[7], series.Tail(3)[0].Date)
	assert.Len(t, series.Tail(100), 10)
}

func TestIsUSHoliday(t *testing.T) {
	testData := map[string]struct {
		date    time.Time
		holiday bool
	}{
		"independence day": {
			time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
			true,
		},
		"christmas": {
			time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
			true,
		},
		"ordinary tuesday": {
			time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
			false,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.holiday, IsUSHoliday(td.date))
		})
	}
}

func TestMarkHolidays(t *testing.T) {
	records := []DailyRecord{
		{Date: time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), OrderCount: 1},
		{Date: time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), OrderCount: 1},
	}
	MarkHolidays(records)
	assert.True(t, records[0].IsHoliday)
	assert.False(t, records[1].IsHoliday)
}

func TestSimulatedRecords(t *testing.T) {
	dates := Dates(14, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	records := Records(dates, Flat(14, 10).WeekendBoost(dates, 2.0))

	for _, r := range records {
		require.NoError(t, r.Valid())
		switch r.Date.Weekday() {
		case time.Saturday, time.Sunday:
			assert.Equal(t, 20, r.OrderCount)
		default:
			assert.Equal(t, 10, r.OrderCount)
		}
		assert.Equal(t, float64(r.OrderCount)*r.AvgPrice, r.Revenue)
	}
}
