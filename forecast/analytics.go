package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/demandcast/demandcast/orderseries"
	"gonum.org/v1/gonum/stat"
)

var ErrNotEnoughPricePoints = errors.New("need at least 2 distinct price points")

// Elasticity is a coarse price sensitivity estimate.
type Elasticity struct {
	// Ratio is mean daily quantity over mean observed price.
	Ratio float64 `json:"ratio"`

	// Correlation is the Pearson correlation between price and quantity,
	// negative when higher prices depress demand.
	Correlation float64 `json:"correlation"`

	PricePoints int `json:"price_points"`
}

// PriceElasticity estimates demand sensitivity to price from history. Fewer
// than two distinct price points is an insufficient-data condition.
func PriceElasticity(records []orderseries.DailyRecord) (*Elasticity, error) {
	prices := make([]float64, 0, len(records))
	quantities := make([]float64, 0, len(records))
	distinct := map[float64]struct{}{}
	for _, r := range records {
		if r.AvgPrice <= 0 {
			continue
		}
		prices = append(prices, r.AvgPrice)
		quantities = append(quantities, float64(r.OrderCount))
		distinct[r.AvgPrice] = struct{}{}
	}
	if len(distinct) < 2 {
		return nil, fmt.Errorf("%d distinct price points, %w", len(distinct), ErrNotEnoughPricePoints)
	}

	meanPrice := stat.Mean(prices, nil)
	meanQty := stat.Mean(quantities, nil)
	corr := stat.Correlation(prices, quantities, nil)
	if math.IsNaN(corr) {
		corr = 0
	}

	return &Elasticity{
		Ratio:       meanQty / meanPrice,
		Correlation: corr,
		PricePoints: len(distinct),
	}, nil
}

// InventoryRecommendation is the suggested stock level for one category.
type InventoryRecommendation struct {
	Category    string  `json:"category"`
	DailyDemand float64 `json:"daily_demand"`

	// Recommended is expected demand over the horizon plus one standard
	// deviation of safety stock.
	Recommended int `json:"recommended"`
	SafetyStock int `json:"safety_stock"`
}

// InventoryRecommendations aggregates history per category and sizes stock
// for the given horizon in days.
func InventoryRecommendations(records []orderseries.DailyRecord, horizonDays int) []InventoryRecommendation {
	if horizonDays <= 0 {
		horizonDays = 14
	}
	byCategory := map[string][]float64{}
	for _, r := range records {
		cat := r.Category
		if cat == "" {
			cat = "uncategorized"
		}
		byCategory[cat] = append(byCategory[cat], float64(r.OrderCount))
	}

	out := make([]InventoryRecommendation, 0, len(byCategory))
	for cat, counts := range byCategory {
		m, std := stat.MeanStdDev(counts, nil)
		if math.IsNaN(std) {
			std = 0
		}
		safety := int(math.Ceil(std * math.Sqrt(float64(horizonDays))))
		out = append(out, InventoryRecommendation{
			Category:    cat,
			DailyDemand: m,
			Recommended: int(math.Ceil(m*float64(horizonDays))) + safety,
			SafetyStock: safety,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Category < out[j].Category
	})
	return out
}

// SubmissionEvent is one buyer submission with its optional payment time,
// supplied by the order-intake collaborator for behavior analytics.
type SubmissionEvent struct {
	SubmittedAt time.Time `json:"submitted_at"`
	PaidAt      time.Time `json:"paid_at,omitempty"`
}

// BuyerBehavior aggregates how buyers convert and when they act.
type BuyerBehavior struct {
	// ConversionRate is total orders over total submissions.
	ConversionRate float64 `json:"conversion_rate"`

	// AvgPaymentLatency is the mean submit-to-pay delay over paid
	// submissions, zero when no payment timestamps are available.
	AvgPaymentLatency time.Duration `json:"avg_payment_latency"`

	// PeakHours are the top submission hours of day, most active first.
	PeakHours []int `json:"peak_hours"`
}

// AnalyzeBuyerBehavior derives behavior aggregates from daily history and,
// when available, per-submission events.
func AnalyzeBuyerBehavior(records []orderseries.DailyRecord, events []SubmissionEvent) *BuyerBehavior {
	var orders, submissions int
	for _, r := range records {
		orders += r.OrderCount
		submissions += r.SubmissionCount
	}
	b := &BuyerBehavior{}
	if submissions > 0 {
		b.ConversionRate = float64(orders) / float64(submissions)
	}

	var latency time.Duration
	paid := 0
	hourCounts := make([]int, 24)
	for _, e := range events {
		if !e.SubmittedAt.IsZero() {
			hourCounts[e.SubmittedAt.Hour()]++
		}
		if !e.PaidAt.IsZero() && e.PaidAt.After(e.SubmittedAt) {
			latency += e.PaidAt.Sub(e.SubmittedAt)
			paid++
		}
	}
	if paid > 0 {
		b.AvgPaymentLatency = latency / time.Duration(paid)
	}
	b.PeakHours = peakHours(hourCounts, 3)
	return b
}

// peakHours returns the topN busiest hours, skipping hours with no activity.
func peakHours(hourCounts []int, topN int) []int {
	hours := make([]int, 0, len(hourCounts))
	for h, c := range hourCounts {
		if c > 0 {
			hours = append(hours, h)
		}
	}
	sort.Slice(hours, func(i, j int) bool {
		if hourCounts[hours[i]] != hourCounts[hours[j]] {
			return hourCounts[hours[i]] > hourCounts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > topN {
		hours = hours[:topN]
	}
	return hours
}
