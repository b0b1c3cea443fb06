// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ovasilev/powerchart/internal/checkpoint"
	"github.com/ovasilev/powerchart/internal/export"
	"github.com/ovasilev/powerchart/internal/scorer"
	"github.com/ovasilev/powerchart/pkg/types"
)

// Ranking stage output files.
const (
	rankingsJSONArtifact = "rankings.json"
	rankingsCSVArtifact  = "rankings.csv"
)

// RankingStage scores the enriched tracks and writes the final rankings.
// Unlike the two fetch stages it has no per-item network work, so it runs
// as a single unit: a resumed run either skips it entirely (completed) or
// recomputes from the enrichment artifact.
type RankingStage struct {
	scorer *scorer.Scorer
	year   int
	runDir string
	store  *checkpoint.Store
	pub    *Publisher
	logger *zap.Logger
}

// NewRankingStage wires the ranking stage.
func NewRankingStage(
	sc *scorer.Scorer,
	year int,
	runDir string,
	store *checkpoint.Store,
	pub *Publisher,
	logger *zap.Logger,
) *RankingStage {
	return &RankingStage{
		scorer: sc,
		year:   year,
		runDir: runDir,
		store:  store,
		pub:    pub,
		logger: logger.Named("ranking"),
	}
}

func (s *RankingStage) Name() string { return StageRanking }

// Run computes the composite ranking and exports it as JSON and CSV.
func (s *RankingStage) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var enriched []types.EnrichedTrack
	if err := readArtifact(filepath.Join(s.runDir, enrichedArtifact), &enriched); err != nil {
		return fmt.Errorf("enrichment output missing, run the enrichment stage first: %w", err)
	}
	if len(enriched) == 0 {
		return fmt.Errorf("no enriched tracks to rank")
	}

	st, err := s.store.GetOrCreate(StageRanking)
	if err != nil {
		return err
	}

	rankings := s.scorer.ComputeRankings(enriched)
	results := types.RankingResults{
		Year:     s.year,
		Strategy: s.scorer.StrategyName(),
		Rankings: rankings,
	}

	jsonPath := filepath.Join(s.runDir, rankingsJSONArtifact)
	if err := export.WriteRankingsJSON(jsonPath, results); err != nil {
		return err
	}
	csvPath := filepath.Join(s.runDir, rankingsCSVArtifact)
	if err := export.WriteRankingsCSV(csvPath, results); err != nil {
		return err
	}

	for _, r := range rankings {
		s.pub.Publish(Event{
			Type: EventItemCompleted, Stage: StageRanking, ItemID: r.Track.Identifier(),
			Message: fmt.Sprintf("#%d %s (%.2f)", r.Rank, r.Track.Display(), r.FinalScore),
		})
	}

	if err := st.SetMetadata(completedKey, "true"); err != nil {
		return err
	}
	s.logger.Info("Ranking complete",
		zap.Int("tracks", len(rankings)),
		zap.String("strategy", results.Strategy),
		zap.String("json", jsonPath),
		zap.String("csv", csvPath))
	return nil
}
