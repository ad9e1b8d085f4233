package demandcast

import (
	"github.com/demandcast/demandcast/comeback"
	"github.com/demandcast/demandcast/forecast"
)

// Options configures an Engine. If no options are provided a default is
// used.
type Options struct {
	Forecast *forecast.Options `yaml:"forecast" json:"forecast"`
	Comeback comeback.Config   `yaml:"comeback" json:"comeback"`
}

// NewDefaultOptions returns the default engine options.
func NewDefaultOptions() *Options {
	return &Options{
		Forecast: forecast.NewDefaultOptions(),
		Comeback: comeback.NewDefaultConfig(),
	}
}
