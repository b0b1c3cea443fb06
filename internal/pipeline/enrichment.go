// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ovasilev/powerchart/internal/checkpoint"
	"github.com/ovasilev/powerchart/pkg/types"
)

// enrichedArtifact is the enrichment stage's output file.
const enrichedArtifact = "enriched.json"

// StatsProvider serves per-track metrics from the catalog.
type StatsProvider interface {
	AvailablePlatforms(ctx context.Context, trackID string) (map[string]bool, error)
	PlatformStats(ctx context.Context, trackID string) (map[string]float64, error)
	HistoricalPeaks(ctx context.Context, trackID, startDate string) (map[string]float64, error)
	TrackVideos(ctx context.Context, trackID string) (*types.VideoMetadata, error)
}

// VideoFetcher fills in engagement statistics for a known video ID.
type VideoFetcher interface {
	GetVideo(ctx context.Context, id string) (*types.VideoMetadata, error)
}

// EnrichmentStage fetches current stats, historical peaks, and platform
// availability for every resolved track, optionally augmented with video
// engagement numbers. A track that fails to enrich is checkpointed as
// failed and the stage continues.
type EnrichmentStage struct {
	stats StatsProvider

	// video is nil when video enrichment is disabled.
	video VideoFetcher

	year   int
	runDir string
	store  *checkpoint.Store
	pub    *Publisher
	logger *zap.Logger
}

// NewEnrichmentStage wires the enrichment stage. Pass a nil video fetcher
// to skip video enrichment.
func NewEnrichmentStage(
	stats StatsProvider,
	video VideoFetcher,
	year int,
	runDir string,
	store *checkpoint.Store,
	pub *Publisher,
	logger *zap.Logger,
) *EnrichmentStage {
	return &EnrichmentStage{
		stats:  stats,
		video:  video,
		year:   year,
		runDir: runDir,
		store:  store,
		pub:    pub,
		logger: logger.Named("enrichment"),
	}
}

func (s *EnrichmentStage) Name() string { return StageEnrichment }

// Run enriches every resolved track from the selection artifact.
func (s *EnrichmentStage) Run(ctx context.Context) error {
	var tracks []types.Track
	if err := readArtifact(filepath.Join(s.runDir, tracksArtifact), &tracks); err != nil {
		return fmt.Errorf("selection output missing, run the selection stage first: %w", err)
	}

	var resolved []types.Track
	for _, t := range tracks {
		if t.Catalog.CatalogID != "" {
			resolved = append(resolved, t)
		}
	}
	if len(resolved) == 0 {
		return fmt.Errorf("no resolved tracks to enrich")
	}

	st, err := s.store.GetOrCreate(StageEnrichment)
	if err != nil {
		return err
	}

	artifact := filepath.Join(s.runDir, enrichedArtifact)
	prior := make(map[string]types.EnrichedTrack)
	if artifactExists(artifact) {
		var saved []types.EnrichedTrack
		if err := readArtifact(artifact, &saved); err != nil {
			return err
		}
		for _, et := range saved {
			prior[et.Track.Identifier()] = et
		}
	}

	var enriched []types.EnrichedTrack
	var done, skipped, failed int

	for i, track := range resolved {
		if err := ctx.Err(); err != nil {
			return err
		}

		id := track.Identifier()
		s.pub.Publish(Event{
			Type: EventItemProcessing, Stage: StageEnrichment, ItemID: id,
			Message: "Enriching " + track.Display(),
		})

		if st.IsProcessed(id) {
			if prev, ok := prior[id]; ok {
				enriched = append(enriched, prev)
				skipped++
				s.pub.Publish(Event{
					Type: EventItemSkipped, Stage: StageEnrichment, ItemID: id,
					Message: "Already enriched: " + track.Display(),
				})
				s.publishProgress(i+1, len(resolved))
				continue
			}
			s.logger.Warn("Track checkpointed but absent from artifact, reprocessing",
				zap.String("id", id))
		}

		et, err := s.enrich(ctx, track)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			if cerr := st.MarkFailed(id); cerr != nil {
				s.logger.Warn("Failed to checkpoint failure", zap.String("id", id), zap.Error(cerr))
			}
			s.pub.Publish(Event{
				Type: EventItemFailed, Stage: StageEnrichment, ItemID: id,
				Message: track.Display(), Err: err.Error(),
			})
			s.publishProgress(i+1, len(resolved))
			continue
		}

		enriched = append(enriched, et)
		done++

		if err := writeArtifact(artifact, enriched); err != nil {
			return err
		}
		if err := st.MarkProcessed(id); err != nil {
			return err
		}
		s.pub.Publish(Event{
			Type: EventItemCompleted, Stage: StageEnrichment, ItemID: id,
			Message: fmt.Sprintf("Enriched %s (%d metrics)", track.Display(), len(et.Metrics.Values)),
		})
		s.publishProgress(i+1, len(resolved))
	}

	if err := writeArtifact(artifact, enriched); err != nil {
		return err
	}
	if err := st.SetMetadata(completedKey, "true"); err != nil {
		return err
	}

	s.logger.Info("Enrichment summary",
		zap.Int("enriched", done),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
	return nil
}

// enrich assembles the metric set for one track. Platform availability is
// fetched first so downstream scoring can tell "no data" from "not on this
// platform". Video enrichment failures degrade to a warning; the catalog
// numbers still count.
func (s *EnrichmentStage) enrich(ctx context.Context, track types.Track) (types.EnrichedTrack, error) {
	catalogID := track.Catalog.CatalogID

	platforms, err := s.stats.AvailablePlatforms(ctx, catalogID)
	if err != nil {
		return types.EnrichedTrack{}, fmt.Errorf("fetching platforms: %w", err)
	}

	stats, err := s.stats.PlatformStats(ctx, catalogID)
	if err != nil {
		return types.EnrichedTrack{}, fmt.Errorf("fetching stats: %w", err)
	}

	peaks, err := s.stats.HistoricalPeaks(ctx, catalogID, fmt.Sprintf("%d-01-01", s.year))
	if err != nil {
		return types.EnrichedTrack{}, fmt.Errorf("fetching historical peaks: %w", err)
	}

	ms := types.NewMetricSet()
	for p, ok := range platforms {
		if ok {
			ms.Platforms[p] = true
		}
	}
	for k, v := range stats {
		ms.Values[k] = v
	}
	for k, v := range peaks {
		ms.Values[k] = v
	}

	et := types.EnrichedTrack{Track: track, Metrics: ms}
	if s.video != nil {
		et.Video = s.fetchVideo(ctx, track, catalogID, &ms)
	}
	return et, nil
}

// fetchVideo finds the track's most viewed video and merges its engagement
// counters into the metric set. Returns nil when the track has no video or
// the lookup fails.
func (s *EnrichmentStage) fetchVideo(ctx context.Context, track types.Track, catalogID string, ms *types.MetricSet) *types.VideoMetadata {
	known, err := s.stats.TrackVideos(ctx, catalogID)
	if err != nil || known == nil {
		if err != nil {
			s.logger.Warn("Video lookup failed", zap.String("track", track.Display()), zap.Error(err))
		}
		return nil
	}

	video, err := s.video.GetVideo(ctx, known.ID)
	if err != nil {
		s.logger.Warn("Video stats fetch failed",
			zap.String("track", track.Display()),
			zap.String("video", known.ID),
			zap.Error(err))
		// Keep what the catalog already knew.
		video = known
	}

	ms.Values["youtube_video_views_total"] = video.Views
	if video.Likes > 0 {
		ms.Values["youtube_likes_total"] = video.Likes
	}
	if video.Comments > 0 {
		ms.Values["youtube_comments_total"] = video.Comments
	}
	ms.Platforms["youtube"] = true
	return video
}

func (s *EnrichmentStage) publishProgress(current, total int) {
	s.pub.Publish(Event{
		Type: EventProgress, Stage: StageEnrichment,
		Current: current, Total: total,
	})
}
