// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovasilev/powerchart/internal/checkpoint"
	"github.com/ovasilev/powerchart/internal/normalize"
	"github.com/ovasilev/powerchart/internal/scorer"
	"github.com/ovasilev/powerchart/pkg/types"
)

func enrichedFixture(title string, streams float64) types.EnrichedTrack {
	ms := types.NewMetricSet()
	ms.Values["spotify_streams_total"] = streams
	ms.Platforms["spotify"] = true
	return types.EnrichedTrack{
		Track:   types.Track{Title: title, Artists: []string{"artist"}, Year: 2024},
		Metrics: ms,
	}
}

func TestRankingStageWritesArtifacts(t *testing.T) {
	runDir := t.TempDir()
	store, err := checkpoint.NewStore(filepath.Join(runDir, checkpointsDir))
	require.NoError(t, err)

	enriched := []types.EnrichedTrack{
		enrichedFixture("Low", 100),
		enrichedFixture("High", 10000),
		enrichedFixture("Mid", 5000),
	}
	require.NoError(t, writeArtifact(filepath.Join(runDir, enrichedArtifact), enriched))

	sc := scorer.New(scorer.Config{
		Categories: map[string][]string{"streams": {"spotify_streams_total"}},
		Weights:    map[string]float64{"streams": scorer.WeightHigh},
	}, normalize.MinMax{})

	stage := NewRankingStage(sc, 2024, runDir, store, &Publisher{}, zap.NewNop())
	require.NoError(t, stage.Run(context.Background()))

	var results types.RankingResults
	require.NoError(t, readArtifact(filepath.Join(runDir, rankingsJSONArtifact), &results))
	assert.Equal(t, 2024, results.Year)
	assert.Equal(t, "minmax", results.Strategy)
	require.Len(t, results.Rankings, 3)
	assert.Equal(t, "High", results.Rankings[0].Track.Title)
	assert.Equal(t, 1, results.Rankings[0].Rank)
	assert.Equal(t, "Low", results.Rankings[2].Track.Title)

	assert.True(t, artifactExists(filepath.Join(runDir, rankingsCSVArtifact)))

	st, err := store.GetOrCreate(StageRanking)
	require.NoError(t, err)
	assert.Equal(t, "true", st.Metadata["completed"])
}

func TestRankingStageFatalWithoutEnrichmentArtifact(t *testing.T) {
	runDir := t.TempDir()
	store, err := checkpoint.NewStore(filepath.Join(runDir, checkpointsDir))
	require.NoError(t, err)

	sc := scorer.New(scorer.DefaultConfig(), nil)
	stage := NewRankingStage(sc, 2024, runDir, store, &Publisher{}, zap.NewNop())
	assert.Error(t, stage.Run(context.Background()))
}

func TestRankingStageFatalOnEmptyEnrichment(t *testing.T) {
	runDir := t.TempDir()
	store, err := checkpoint.NewStore(filepath.Join(runDir, checkpointsDir))
	require.NoError(t, err)
	require.NoError(t, writeArtifact(filepath.Join(runDir, enrichedArtifact), []types.EnrichedTrack{}))

	sc := scorer.New(scorer.DefaultConfig(), nil)
	stage := NewRankingStage(sc, 2024, runDir, store, &Publisher{}, zap.NewNop())
	assert.Error(t, stage.Run(context.Background()))
}
