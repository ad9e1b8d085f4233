package comeback

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// gapStats summarizes the inter-event timing pattern of an entity.
type gapStats struct {
	// MeanGap and GapStd describe the day-gaps between consecutive events.
	MeanGap float64
	GapStd  float64

	// Consistency is MeanGap / GapStd; 0 when MeanGap is 0.
	Consistency float64

	// PreferredMonth is the most frequent calendar month of occurrence,
	// ties broken by earliest month index.
	PreferredMonth    time.Month
	HasPreferredMonth bool

	// SeasonalityScore in [-1,1] measures concentration of events in the
	// preferred month. 1 means all events share a month.
	SeasonalityScore float64
}

// newGapStats computes the timing pattern. Fewer than two events yields the
// wide-gap default with zero seasonality.
func newGapStats(history []EventRecord) gapStats {
	if len(history) < 2 {
		return gapStats{MeanGap: DefaultGapDays}
	}

	sorted := make([]EventRecord, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OccurredAt.Before(sorted[j].OccurredAt) })

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].OccurredAt.Sub(sorted[i-1].OccurredAt).Hours()/24)
	}

	mean, std := stat.MeanStdDev(gaps, nil)
	if len(gaps) < 2 || math.IsNaN(std) {
		std = 0
	}

	consistency := 0.0
	switch {
	case mean == 0:
		consistency = 0
	case std == 0:
		consistency = math.Inf(1)
	default:
		consistency = mean / std
	}

	month, score := monthConcentration(sorted)

	return gapStats{
		MeanGap:           mean,
		GapStd:            std,
		Consistency:       consistency,
		PreferredMonth:    month,
		HasPreferredMonth: true,
		SeasonalityScore:  score,
	}
}

// monthConcentration finds the most frequent occurrence month and a score in
// [-1,1]: 2*share-1 where share is the fraction of events in that month.
func monthConcentration(history []EventRecord) (time.Month, float64) {
	var counts [12]int
	for _, e := range history {
		counts[int(e.OccurredAt.Month())-1]++
	}
	best := 0
	for i := 1; i < 12; i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	share := float64(counts[best]) / float64(len(history))
	return time.Month(best + 1), 2*share - 1
}

// averageImpact aggregates the observed impact metrics across history.
// Zero history returns conservative defaults.
func averageImpact(history []EventRecord) ImpactMetrics {
	if len(history) == 0 {
		return ImpactMetrics{PeakIncrease: 1.5, DurationDays: 0, VolumeIncrease: 0}
	}

	var peak, volume, duration float64
	share := make(map[string]float64)
	withDuration := 0
	for _, e := range history {
		peak += e.Impact.PeakIncrease
		volume += e.Impact.VolumeIncrease
		if e.Impact.DurationDays > 0 {
			duration += float64(e.Impact.DurationDays)
			withDuration++
		}
		for cat, s := range e.Impact.CategoryShare {
			share[cat] += s
		}
	}
	n := float64(len(history))
	avg := ImpactMetrics{
		PeakIncrease:   peak / n,
		VolumeIncrease: volume / n,
	}
	if withDuration > 0 {
		avg.DurationDays = int(math.Round(duration / float64(withDuration)))
	}
	for cat := range share {
		share[cat] /= n
	}
	if len(share) > 0 {
		avg.CategoryShare = share
	}
	return avg
}
