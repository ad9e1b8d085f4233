package modelstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/demandcast/demandcast/forecast"
	"github.com/demandcast/demandcast/models"
	"github.com/demandcast/demandcast/preprocess"
	"github.com/demandcast/demandcast/trainer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifact() *forecast.Artifact {
	return &forecast.Artifact{
		Weights: models.Weights{
			Intercept: 1.5,
			Coef:      []float64{0.1, 0.2, 0.3},
		},
		Scaling: &preprocess.ScalingParameters{
			Method: preprocess.NormalizationZScore,
			Fields: []preprocess.FieldScale{{Mean: 1, Std: 2}},
			Target: preprocess.FieldScale{Mean: 50, Std: 10},
		},
		FeatureNames: []string{"a", "b", "c"},
		Trainer:      trainer.NewDefaultConfig(),
		TrainedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestArtifactRoundtrip(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	art := testArtifact()
	require.NoError(t, store.SaveArtifact(ctx, "groupA", art))

	loaded, err := store.LoadArtifact(ctx, "groupA")
	require.NoError(t, err)
	assert.Equal(t, art.Weights, loaded.Weights)
	assert.Equal(t, art.FeatureNames, loaded.FeatureNames)
	assert.Equal(t, art.Scaling.Method, loaded.Scaling.Method)
	assert.Equal(t, art.Scaling.Target, loaded.Scaling.Target)
}

func TestSaveArtifactUpserts(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	art := testArtifact()
	require.NoError(t, store.SaveArtifact(ctx, "groupA", art))

	art.Weights.Intercept = 9.9
	require.NoError(t, store.SaveArtifact(ctx, "groupA", art))

	loaded, err := store.LoadArtifact(ctx, "groupA")
	require.NoError(t, err)
	assert.Equal(t, 9.9, loaded.Weights.Intercept)

	entities, err := store.Entities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"groupA"}, entities)
}

func TestLoadArtifactNotFound(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.LoadArtifact(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReports(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := store.SaveReport(ctx, uuid.New(), "groupA", base.AddDate(0, 0, i), []byte{byte(i)})
		require.NoError(t, err)
	}
	require.NoError(t, store.SaveReport(ctx, uuid.New(), "groupB", base, []byte{99}))

	payloads, err := store.RecentReports(ctx, "groupA", 2)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	// newest first
	assert.Equal(t, []byte{2}, payloads[0])
	assert.Equal(t, []byte{1}, payloads[1])

	all, err := store.RecentReports(ctx, "groupA", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPruneOldReportsOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	store, err := Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	stale := time.Now().UTC().Add(-reportRetention - 24*time.Hour)
	require.NoError(t, store.SaveReport(ctx, uuid.New(), "groupA", stale, []byte{1}))
	require.NoError(t, store.SaveReport(ctx, uuid.New(), "groupA", time.Now().UTC(), []byte{2}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	payloads, err := store.RecentReports(ctx, "groupA", 0)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, []byte{2}, payloads[0])
}
