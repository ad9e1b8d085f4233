// Package orderseries holds the cleaned daily order/submission series that
// feeds the preprocessing and forecasting layers. A series is unique per
// date and sorted ascending once constructed.
package orderseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

var (
	ErrNoRecords     = errors.New("no valid records in series")
	ErrZeroDate      = errors.New("record has no date")
	ErrNegativeCount = errors.New("record has a negative count")
	ErrNegativeValue = errors.New("record has a negative monetary value")
)

// DailyRecord is one calendar day of aggregated activity for one selling
// context.
type DailyRecord struct {
	Date            time.Time `json:"date"`
	OrderCount      int       `json:"order_count"`
	SubmissionCount int       `json:"submission_count"`
	Revenue         float64   `json:"revenue"`
	AvgPrice        float64   `json:"avg_price"`
	Category        string    `json:"category"`
	Geography       string    `json:"geography"`
	IsHoliday       bool      `json:"is_holiday"`
}

// Valid reports whether the record can enter a series. Records failing
// validation are dropped by New, not fatal unless the whole input empties.
func (r *DailyRecord) Valid() error {
	if r.Date.IsZero() {
		return ErrZeroDate
	}
	if r.OrderCount < 0 || r.SubmissionCount < 0 {
		return fmt.Errorf("orders=%d submissions=%d, %w", r.OrderCount, r.SubmissionCount, ErrNegativeCount)
	}
	if r.Revenue < 0 || r.AvgPrice < 0 {
		return fmt.Errorf("revenue=%f avg_price=%f, %w", r.Revenue, r.AvgPrice, ErrNegativeValue)
	}
	if math.IsNaN(r.Revenue) || math.IsNaN(r.AvgPrice) {
		return fmt.Errorf("revenue=%f avg_price=%f, %w", r.Revenue, r.AvgPrice, ErrNegativeValue)
	}
	return nil
}

// Weekday returns the 0-indexed day of week with Sunday as 0.
func (r *DailyRecord) Weekday() int {
	return int(r.Date.Weekday())
}

// Month returns the 0-indexed calendar month.
func (r *DailyRecord) Month() int {
	return int(r.Date.Month()) - 1
}

// Day truncates the record date to midnight UTC, the canonical series key.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// OrderSeries is a deduped, ascending-date sequence of daily records.
type OrderSeries struct {
	Records []DailyRecord

	// Dropped counts input records rejected during construction.
	Dropped int
}

// New constructs a series from an unordered set of records. Invalid records
// are dropped and counted, duplicate dates keep the last occurrence, and the
// result is sorted ascending by date.
func New(records []DailyRecord) (*OrderSeries, error) {
	byDate := make(map[time.Time]DailyRecord, len(records))
	dropped := 0
	for _, r := range records {
		if err := r.Valid(); err != nil {
			dropped++
			continue
		}
		r.Date = Day(r.Date)
		byDate[r.Date] = r
	}
	if len(byDate) == 0 {
		return nil, fmt.Errorf("dropped %d of %d records, %w", dropped, len(records), ErrNoRecords)
	}

	out := make([]DailyRecord, 0, len(byDate))
	for _, r := range byDate {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return &OrderSeries{Records: out, Dropped: dropped}, nil
}

func (s *OrderSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Dates returns the record dates in ascending order.
func (s *OrderSeries) Dates() []time.Time {
	t := make([]time.Time, s.Len())
	for i, r := range s.Records {
		t[i] = r.Date
	}
	return t
}

// Counts returns the order counts as a float slice aligned with Dates.
func (s *OrderSeries) Counts() []float64 {
	y := make([]float64, s.Len())
	for i, r := range s.Records {
		y[i] = float64(r.OrderCount)
	}
	return y
}

// Submissions returns the submission counts aligned with Dates.
func (s *OrderSeries) Submissions() []float64 {
	y := make([]float64, s.Len())
	for i, r := range s.Records {
		y[i] = float64(r.SubmissionCount)
	}
	return y
}

// Revenues returns the revenue values aligned with Dates.
func (s *OrderSeries) Revenues() []float64 {
	y := make([]float64, s.Len())
	for i, r := range s.Records {
		y[i] = r.Revenue
	}
	return y
}

// Copy returns a deep copy of the series.
func (s *OrderSeries) Copy() *OrderSeries {
	records := make([]DailyRecord, len(s.Records))
	copy(records, s.Records)
	return &OrderSeries{Records: records, Dropped: s.Dropped}
}

// Tail returns the last n records, or all records if fewer exist.
func (s *OrderSeries) Tail(n int) []DailyRecord {
	if n >= s.Len() {
		return s.Records
	}
	return s.Records[s.Len()-n:]
}

var usCalendar = newUSCalendar()

func newUSCalendar() *cal.Calendar {
	c := &cal.Calendar{}
	c.AddHoliday(us.Holidays...)
	return c
}

// IsUSHoliday reports whether the date falls on an actual or observed US
// holiday.
func IsUSHoliday(t time.Time) bool {
	actual, observed, _ := usCalendar.IsHoliday(t)
	return actual || observed
}

// MarkHolidays sets the IsHoliday flag on records whose date lands on a US
// holiday. Records already flagged by the caller are left untouched.
func MarkHolidays(records []DailyRecord) {
	for i := range records {
		if records[i].IsHoliday {
			continue
		}
		records[i].IsHoliday = IsUSHoliday(records[i].Date)
	}
}
