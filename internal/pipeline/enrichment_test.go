// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovasilev/powerchart/internal/checkpoint"
	"github.com/ovasilev/powerchart/pkg/types"
)

// fakeStats serves canned catalog responses keyed by catalog track ID.
type fakeStats struct {
	platforms map[string]map[string]bool
	stats     map[string]map[string]float64
	peaks     map[string]map[string]float64
	videos    map[string]*types.VideoMetadata
	errs      map[string]error

	statsCalls int
}

func (f *fakeStats) AvailablePlatforms(_ context.Context, id string) (map[string]bool, error) {
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.platforms[id], nil
}

func (f *fakeStats) PlatformStats(_ context.Context, id string) (map[string]float64, error) {
	f.statsCalls++
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.stats[id], nil
}

func (f *fakeStats) HistoricalPeaks(_ context.Context, id, _ string) (map[string]float64, error) {
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.peaks[id], nil
}

func (f *fakeStats) TrackVideos(_ context.Context, id string) (*types.VideoMetadata, error) {
	return f.videos[id], nil
}

// fakeVideo returns fixed engagement numbers per video ID.
type fakeVideo struct {
	videos map[string]*types.VideoMetadata
}

func (f *fakeVideo) GetVideo(_ context.Context, id string) (*types.VideoMetadata, error) {
	if v, ok := f.videos[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("video %s not found", id)
}

type enrichmentEnv struct {
	runDir string
	store  *checkpoint.Store
	pub    *Publisher
}

func newEnrichmentEnv(t *testing.T, tracks []types.Track) *enrichmentEnv {
	t.Helper()
	runDir := t.TempDir()
	store, err := checkpoint.NewStore(filepath.Join(runDir, checkpointsDir))
	require.NoError(t, err)
	require.NoError(t, writeArtifact(filepath.Join(runDir, tracksArtifact), tracks))
	return &enrichmentEnv{runDir: runDir, store: store, pub: &Publisher{}}
}

func (e *enrichmentEnv) stage(stats StatsProvider, video VideoFetcher) *EnrichmentStage {
	return NewEnrichmentStage(stats, video, 2024, e.runDir, e.store, e.pub, zap.NewNop())
}

func resolvedTrack(i int) types.Track {
	return types.Track{
		Title:   fmt.Sprintf("Song %d", i),
		Artists: []string{"artist"},
		Year:    2024,
		Catalog: types.CatalogIdentifiers{CatalogID: fmt.Sprintf("cat-%d", i)},
	}
}

func TestEnrichmentMergesStatsAndPeaks(t *testing.T) {
	env := newEnrichmentEnv(t, []types.Track{resolvedTrack(1)})
	stats := &fakeStats{
		platforms: map[string]map[string]bool{"cat-1": {"spotify": true, "deezer": true}},
		stats: map[string]map[string]float64{
			"cat-1": {"spotify_streams_total": 1000, "deezer_playlists_total": 5},
		},
		peaks: map[string]map[string]float64{
			"cat-1": {"spotify_popularity_peak": 81},
		},
	}

	require.NoError(t, env.stage(stats, nil).Run(context.Background()))

	var enriched []types.EnrichedTrack
	require.NoError(t, readArtifact(filepath.Join(env.runDir, enrichedArtifact), &enriched))
	require.Len(t, enriched, 1)

	et := enriched[0]
	assert.Equal(t, 1000.0, et.Metrics.Values["spotify_streams_total"])
	assert.Equal(t, 81.0, et.Metrics.Values["spotify_popularity_peak"])
	assert.True(t, et.Metrics.Platforms["spotify"])
	assert.True(t, et.Metrics.Platforms["deezer"])
	assert.False(t, et.Metrics.Platforms["tidal"])
	assert.Nil(t, et.Video)
}

func TestEnrichmentSkipsUnresolvedTracks(t *testing.T) {
	unresolved := types.Track{Title: "Nope", Artists: []string{"artist"}, Year: 2024}
	env := newEnrichmentEnv(t, []types.Track{resolvedTrack(1), unresolved})
	stats := &fakeStats{
		platforms: map[string]map[string]bool{"cat-1": {"spotify": true}},
		stats:     map[string]map[string]float64{"cat-1": {"spotify_streams_total": 10}},
		peaks:     map[string]map[string]float64{"cat-1": {}},
	}

	require.NoError(t, env.stage(stats, nil).Run(context.Background()))

	var enriched []types.EnrichedTrack
	require.NoError(t, readArtifact(filepath.Join(env.runDir, enrichedArtifact), &enriched))
	assert.Len(t, enriched, 1)
}

func TestEnrichmentContinuesAfterItemFailure(t *testing.T) {
	env := newEnrichmentEnv(t, []types.Track{resolvedTrack(1), resolvedTrack(2)})
	stats := &fakeStats{
		platforms: map[string]map[string]bool{"cat-2": {"spotify": true}},
		stats:     map[string]map[string]float64{"cat-2": {"spotify_streams_total": 7}},
		peaks:     map[string]map[string]float64{"cat-2": {}},
		errs:      map[string]error{"cat-1": fmt.Errorf("quota exhausted")},
	}

	require.NoError(t, env.stage(stats, nil).Run(context.Background()))

	var enriched []types.EnrichedTrack
	require.NoError(t, readArtifact(filepath.Join(env.runDir, enrichedArtifact), &enriched))
	require.Len(t, enriched, 1)
	assert.Equal(t, "Song 2", enriched[0].Track.Title)

	st, err := env.store.GetOrCreate(StageEnrichment)
	require.NoError(t, err)
	assert.Equal(t, 1, st.FailedCount())
	assert.Equal(t, 1, st.ProcessedCount())
}

func TestEnrichmentResumeSkipsProcessed(t *testing.T) {
	env := newEnrichmentEnv(t, []types.Track{resolvedTrack(1), resolvedTrack(2)})
	stats := &fakeStats{
		platforms: map[string]map[string]bool{
			"cat-1": {"spotify": true},
			"cat-2": {"spotify": true},
		},
		stats: map[string]map[string]float64{
			"cat-1": {"spotify_streams_total": 1},
			"cat-2": {"spotify_streams_total": 2},
		},
		peaks: map[string]map[string]float64{"cat-1": {}, "cat-2": {}},
	}

	require.NoError(t, env.stage(stats, nil).Run(context.Background()))
	firstCalls := stats.statsCalls
	assert.Equal(t, 2, firstCalls)

	require.NoError(t, env.stage(stats, nil).Run(context.Background()))
	assert.Equal(t, firstCalls, stats.statsCalls, "resumed run refetches nothing")
}

func TestEnrichmentAttachesVideoStats(t *testing.T) {
	env := newEnrichmentEnv(t, []types.Track{resolvedTrack(1)})
	stats := &fakeStats{
		platforms: map[string]map[string]bool{"cat-1": {"spotify": true}},
		stats:     map[string]map[string]float64{"cat-1": {"spotify_streams_total": 10}},
		peaks:     map[string]map[string]float64{"cat-1": {}},
		videos: map[string]*types.VideoMetadata{
			"cat-1": {ID: "vid-1", Views: 100},
		},
	}
	video := &fakeVideo{videos: map[string]*types.VideoMetadata{
		"vid-1": {ID: "vid-1", Title: "Song 1 (Official)", Views: 5000, Likes: 40, Comments: 3},
	}}

	require.NoError(t, env.stage(stats, video).Run(context.Background()))

	var enriched []types.EnrichedTrack
	require.NoError(t, readArtifact(filepath.Join(env.runDir, enrichedArtifact), &enriched))
	require.Len(t, enriched, 1)

	et := enriched[0]
	require.NotNil(t, et.Video)
	assert.Equal(t, "Song 1 (Official)", et.Video.Title)
	assert.Equal(t, 5000.0, et.Metrics.Values["youtube_video_views_total"])
	assert.Equal(t, 40.0, et.Metrics.Values["youtube_likes_total"])
	assert.True(t, et.Metrics.Platforms["youtube"])
}

func TestEnrichmentFatalWithoutSelectionArtifact(t *testing.T) {
	runDir := t.TempDir()
	store, err := checkpoint.NewStore(filepath.Join(runDir, checkpointsDir))
	require.NoError(t, err)

	stage := NewEnrichmentStage(&fakeStats{}, nil, 2024, runDir, store, &Publisher{}, zap.NewNop())
	assert.Error(t, stage.Run(context.Background()))
}
