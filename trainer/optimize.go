package trainer

import (
	"log/slog"
	"sync"
)

// Grid is the hyperparameter search space. The cartesian product of all
// dimensions is trained exhaustively.
type Grid struct {
	LearningRates []float64 `yaml:"learning_rates" json:"learning_rates"`
	BatchSizes    []int     `yaml:"batch_sizes" json:"batch_sizes"`
	HiddenWidths  []int     `yaml:"hidden_widths" json:"hidden_widths"`
	L2            []float64 `yaml:"l2" json:"l2"`

	Epochs   int `yaml:"epochs" json:"epochs"`
	Patience int `yaml:"patience" json:"patience"`

	// Parallelization caps concurrent candidate fits. Candidates are
	// independent, so this is purely a performance knob.
	Parallelization int `yaml:"parallelization" json:"parallelization"`
}

// NewDefaultGrid returns a small default search space.
func NewDefaultGrid() Grid {
	return Grid{
		LearningRates:   []float64{0.001, 0.01},
		BatchSizes:      []int{8, 16},
		HiddenWidths:    []int{0, 8},
		L2:              []float64{0, 0.001},
		Epochs:          200,
		Patience:        10,
		Parallelization: 1,
	}
}

func (g Grid) configs() []Config {
	base := NewDefaultConfig()
	lrs := g.LearningRates
	if len(lrs) == 0 {
		lrs = []float64{base.LearningRate}
	}
	batches := g.BatchSizes
	if len(batches) == 0 {
		batches = []int{base.BatchSize}
	}
	widths := g.HiddenWidths
	if len(widths) == 0 {
		widths = []int{base.HiddenWidth}
	}
	l2s := g.L2
	if len(l2s) == 0 {
		l2s = []float64{base.L2}
	}
	epochs := g.Epochs
	if epochs <= 0 {
		epochs = base.Epochs
	}
	patience := g.Patience
	if patience <= 0 {
		patience = base.Patience
	}

	out := make([]Config, 0, len(lrs)*len(batches)*len(widths)*len(l2s))
	for _, lr := range lrs {
		for _, b := range batches {
			for _, w := range widths {
				for _, l2 := range l2s {
					out = append(out, Config{
						LearningRate: lr,
						BatchSize:    b,
						HiddenWidth:  w,
						L2:           l2,
						Epochs:       epochs,
						Patience:     patience,
					})
				}
			}
		}
	}
	return out
}

// OptimizeResult is the outcome of a full grid search.
type OptimizeResult struct {
	Best       *Result   `json:"best"`
	BestScore  float64   `json:"best_score"`
	AllResults []*Result `json:"all_results"`
}

// Optimize trains one candidate per grid combination and returns the best by
// held-out R2, tie-broken by smaller hidden width (simpler architecture).
// Failed candidates are logged and skipped rather than aborting the search.
func Optimize(x [][]float64, y []float64, grid Grid) (*OptimizeResult, error) {
	if len(x) < MinTrainSamples {
		return nil, ErrInsufficientData
	}
	configs := grid.configs()
	if len(configs) == 0 {
		return nil, ErrEmptyGrid
	}

	parallelization := grid.Parallelization
	if parallelization <= 0 || parallelization > len(configs) {
		parallelization = 1
	}

	results := make([]*Result, len(configs))
	sem := make(chan struct{}, parallelization)
	var wg sync.WaitGroup
	for i, cfg := range configs {
		sem <- struct{}{}
		wg.Add(1)

		go func(i int, cfg Config) {
			defer func() {
				wg.Done()
				<-sem
			}()
			res, err := Train(x, y, cfg)
			if err != nil {
				slog.Error("unable to train grid candidate",
					"learning_rate", cfg.LearningRate,
					"batch_size", cfg.BatchSize,
					"hidden_width", cfg.HiddenWidth,
					"l2", cfg.L2,
					"error", err.Error(),
				)
				return
			}
			results[i] = res
		}(i, cfg)
	}
	wg.Wait()

	out := &OptimizeResult{AllResults: make([]*Result, 0, len(results))}
	for _, res := range results {
		if res == nil {
			continue
		}
		out.AllResults = append(out.AllResults, res)
		if out.Best == nil || better(res, out.Best) {
			out.Best = res
			out.BestScore = res.Metrics.R2
		}
	}
	if out.Best == nil {
		return nil, ErrInsufficientData
	}
	return out, nil
}

// better prefers higher held-out R2; near-ties go to the simpler
// architecture.
func better(a, b *Result) bool {
	const tieTolerance = 1e-3
	if a.Metrics.R2 > b.Metrics.R2+tieTolerance {
		return true
	}
	if b.Metrics.R2 > a.Metrics.R2+tieTolerance {
		return false
	}
	return a.Config.HiddenWidth < b.Config.HiddenWidth
}
