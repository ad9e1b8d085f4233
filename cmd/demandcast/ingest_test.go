package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRecords(t *testing.T) {
	path := writeFile(t, "history.csv", `date,order_count,submission_count,revenue,avg_price,category
2025-01-01,100,150,2500.0,25.0,album
2025-01-02,80,120,2000.0,25.0,album
`)

	records, err := loadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, 100, records[0].OrderCount)
	assert.Equal(t, 150, records[0].SubmissionCount)
	assert.Equal(t, 2500.0, records[0].Revenue)
	assert.Equal(t, 25.0, records[0].AvgPrice)
	assert.Equal(t, "album", records[0].Category)
}

func TestLoadRecordsColumnOrder(t *testing.T) {
	path := writeFile(t, "history.csv", `order_count, date
42, 2025-02-01
`)

	records, err := loadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 42, records[0].OrderCount)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
}

func TestLoadRecordsErrors(t *testing.T) {
	testData := map[string]struct {
		content string
	}{
		"missing date column": {
			"order_count\n42\n",
		},
		"bad date": {
			"date,order_count\nnot-a-date,42\n",
		},
		"bad count": {
			"date,order_count\n2025-01-01,many\n",
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "history.csv", td.content)
			_, err := loadRecords(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadEvents(t *testing.T) {
	path := writeFile(t, "events.json", `[
		{
			"occurred_at": "2024-05-01T00:00:00Z",
			"categories": ["album"],
			"impact": {"peak_increase": 2.5, "duration_days": 10}
		}
	]`)

	events, err := loadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2.5, events[0].Impact.PeakIncrease)
	assert.Equal(t, 10, events[0].Impact.DurationDays)
}

func TestLoadEventsBadJSON(t *testing.T) {
	path := writeFile(t, "events.json", "{not json")
	_, err := loadEvents(path)
	assert.Error(t, err)
}
