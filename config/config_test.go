package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Forecast.Horizon)
	assert.Equal(t, 10, cfg.Forecast.MinTrainSamples)
	assert.Equal(t, "demandcast.db", cfg.Storage.DSN)
	assert.Equal(t, "06:00", cfg.Schedule.At)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 30, cfg.Preproc.MinSamples)
	assert.Greater(t, cfg.Trainer.LearningRate, 0.0)
	assert.Equal(t, 3, cfg.Comeback.PeakDay)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
forecast:
  horizon: 28
  min_train_samples: 20
storage:
  dsn: ":memory:"
schedule:
  enabled: true
  at: "04:30"
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 28, cfg.Forecast.Horizon)
	assert.Equal(t, 20, cfg.Forecast.MinTrainSamples)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)

	hour, minute := cfg.ScheduleAt()
	assert.Equal(t, 4, hour)
	assert.Equal(t, 30, minute)

	// unset fields still get defaults
	assert.Greater(t, cfg.Forecast.ConfidenceBase, 0.0)
	assert.Equal(t, 3, cfg.Comeback.PeakDay)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEMANDCAST_DSN", "/tmp/override.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.DSN)
}

func TestEngineOptions(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	opt := cfg.EngineOptions()
	require.NotNil(t, opt.Forecast)
	assert.Equal(t, cfg.Forecast.Horizon, opt.Forecast.Horizon)
	assert.Equal(t, cfg.Trainer, opt.Forecast.Trainer)
	assert.Equal(t, cfg.Comeback, opt.Comeback)
}

func TestScheduleAtInvalid(t *testing.T) {
	cfg := &Config{}
	hour, minute := cfg.ScheduleAt()
	assert.Equal(t, 6, hour)
	assert.Equal(t, 0, minute)
}
