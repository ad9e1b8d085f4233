package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/demandcast/demandcast/comeback"
	"github.com/demandcast/demandcast/orderseries"
	json "github.com/goccy/go-json"
)

// loadRecords reads daily history from a CSV file with a header row. Column
// order is free; recognized names are date, order_count, submission_count,
// revenue, avg_price, category, geography.
func loadRecords(path string) ([]orderseries.DailyRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %q, %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read header of %q, %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["date"]; !ok {
		return nil, fmt.Errorf("%q has no date column", path)
	}

	var records []orderseries.DailyRecord
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("unable to read line %d of %q, %w", line, path, err)
		}

		rec, err := parseRecord(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d of %q, %w", line, path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(row []string, cols map[string]int) (orderseries.DailyRecord, error) {
	var rec orderseries.DailyRecord

	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := time.Parse(time.DateOnly, get("date"))
	if err != nil {
		return rec, fmt.Errorf("unable to parse date, %w", err)
	}
	rec.Date = date

	if v := get("order_count"); v != "" {
		if rec.OrderCount, err = strconv.Atoi(v); err != nil {
			return rec, fmt.Errorf("unable to parse order_count, %w", err)
		}
	}
	if v := get("submission_count"); v != "" {
		if rec.SubmissionCount, err = strconv.Atoi(v); err != nil {
			return rec, fmt.Errorf("unable to parse submission_count, %w", err)
		}
	}
	if v := get("revenue"); v != "" {
		if rec.Revenue, err = strconv.ParseFloat(v, 64); err != nil {
			return rec, fmt.Errorf("unable to parse revenue, %w", err)
		}
	}
	if v := get("avg_price"); v != "" {
		if rec.AvgPrice, err = strconv.ParseFloat(v, 64); err != nil {
			return rec, fmt.Errorf("unable to parse avg_price, %w", err)
		}
	}
	rec.Category = get("category")
	rec.Geography = get("geography")
	return rec, nil
}

// loadEvents reads comeback event history from a JSON array file.
func loadEvents(path string) ([]comeback.EventRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %q, %w", path, err)
	}
	var events []comeback.EventRecord
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("unable to parse events in %q, %w", path, err)
	}
	return events, nil
}
