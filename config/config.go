// Package config loads the engine configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	demandcast "github.com/demandcast/demandcast"
	"github.com/demandcast/demandcast/comeback"
	"github.com/demandcast/demandcast/forecast"
	"github.com/demandcast/demandcast/preprocess"
	"github.com/demandcast/demandcast/trainer"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Forecast ForecastConfig    `yaml:"forecast"`
	Trainer  trainer.Config    `yaml:"trainer"`
	Comeback comeback.Config   `yaml:"comeback"`
	Storage  StorageConfig     `yaml:"storage"`
	Schedule ScheduleConfig    `yaml:"schedule"`
	Log      LogConfig         `yaml:"log"`
	Preproc  preprocess.Config `yaml:"preprocess"`
}

// ForecastConfig controls the orchestrator surface.
type ForecastConfig struct {
	Horizon         int     `yaml:"horizon"`
	MinTrainSamples int     `yaml:"min_train_samples"`
	ConfidenceBase  float64 `yaml:"confidence_base"`
	ConfidenceDecay float64 `yaml:"confidence_decay"`
	MinConfidence   float64 `yaml:"min_confidence"`
	HeuristicWindow int     `yaml:"heuristic_window"`
}

// StorageConfig controls where artifacts and reports persist.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // path to the SQLite file, or ":memory:"
}

// ScheduleConfig controls the daily retrain job.
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	At      string `yaml:"at"` // HH:MM, local time
}

// LogConfig controls the logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file at path plus a .env file if present. Environment
// values override the YAML for the keys they cover. An empty path yields
// the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config %q, %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config %q, %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg, nil
}

// EngineOptions converts the loaded configuration into engine options.
func (c *Config) EngineOptions() *demandcast.Options {
	return &demandcast.Options{
		Forecast: &forecast.Options{
			Horizon:         c.Forecast.Horizon,
			MinTrainSamples: c.Forecast.MinTrainSamples,
			Preprocess:      c.Preproc,
			Trainer:         c.Trainer,
			ConfidenceBase:  c.Forecast.ConfidenceBase,
			ConfidenceDecay: c.Forecast.ConfidenceDecay,
			MinConfidence:   c.Forecast.MinConfidence,
			HeuristicWindow: c.Forecast.HeuristicWindow,
		},
		Comeback: c.Comeback,
	}
}

// Logger builds a slog logger per the log configuration.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch c.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// ScheduleAt parses the retrain time of day, defaulting to 06:00.
func (c *Config) ScheduleAt() (hour, minute int) {
	t, err := time.Parse("15:04", c.Schedule.At)
	if err != nil {
		return 6, 0
	}
	return t.Hour(), t.Minute()
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("DEMANDCAST_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

func setDefaults(cfg *Config) {
	def := forecast.NewDefaultOptions()
	if cfg.Forecast.Horizon <= 0 {
		cfg.Forecast.Horizon = def.Horizon
	}
	if cfg.Forecast.MinTrainSamples <= 0 {
		cfg.Forecast.MinTrainSamples = def.MinTrainSamples
	}
	if cfg.Forecast.ConfidenceBase <= 0 {
		cfg.Forecast.ConfidenceBase = def.ConfidenceBase
	}
	if cfg.Forecast.ConfidenceDecay <= 0 {
		cfg.Forecast.ConfidenceDecay = def.ConfidenceDecay
	}
	if cfg.Forecast.MinConfidence <= 0 {
		cfg.Forecast.MinConfidence = def.MinConfidence
	}
	if cfg.Forecast.HeuristicWindow <= 0 {
		cfg.Forecast.HeuristicWindow = def.HeuristicWindow
	}
	if cfg.Trainer.LearningRate <= 0 {
		cfg.Trainer = trainer.NewDefaultConfig()
	}
	if cfg.Comeback.PeakDay == 0 && cfg.Comeback.DurationDays == 0 {
		cfg.Comeback = comeback.NewDefaultConfig()
	}
	if cfg.Preproc.MinSamples <= 0 {
		cfg.Preproc = preprocess.NewDefaultConfig()
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "demandcast.db"
	}
	if cfg.Schedule.At == "" {
		cfg.Schedule.At = "06:00"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
