// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ovasilev/powerchart/internal/checkpoint"
	"github.com/ovasilev/powerchart/internal/library"
	"github.com/ovasilev/powerchart/internal/review"
	"github.com/ovasilev/powerchart/internal/text"
	"github.com/ovasilev/powerchart/pkg/types"
)

// tracksArtifact is the selection stage's output file.
const tracksArtifact = "tracks.yaml"

// LibraryReader lists tracks from the local library export.
type LibraryReader interface {
	ListTracks(sel library.Selector) ([]types.Track, error)
}

// CatalogSearcher resolves search queries to catalog candidates.
type CatalogSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]types.CandidateMatch, error)
}

// SelectionStage reads the year's playlist from the library and resolves
// each track to a catalog ID. Unresolvable tracks go to the review queue;
// the stage keeps going.
type SelectionStage struct {
	reader   LibraryReader
	searcher CatalogSearcher
	selector library.Selector

	runDir string
	store  *checkpoint.Store
	queue  *review.Queue
	pub    *Publisher
	logger *zap.Logger
}

// NewSelectionStage wires the selection stage.
func NewSelectionStage(
	reader LibraryReader,
	searcher CatalogSearcher,
	selector library.Selector,
	runDir string,
	store *checkpoint.Store,
	queue *review.Queue,
	pub *Publisher,
	logger *zap.Logger,
) *SelectionStage {
	return &SelectionStage{
		reader:   reader,
		searcher: searcher,
		selector: selector,
		runDir:   runDir,
		store:    store,
		queue:    queue,
		pub:      pub,
		logger:   logger.Named("selection"),
	}
}

func (s *SelectionStage) Name() string { return StageSelection }

// Run resolves every selected library track against the catalog. Already
// processed tracks are skipped using the checkpoint, with their prior
// resolution loaded from the output artifact.
func (s *SelectionStage) Run(ctx context.Context) error {
	tracks, err := s.reader.ListTracks(s.selector)
	if err != nil {
		return fmt.Errorf("listing library tracks: %w", err)
	}
	if len(tracks) == 0 {
		return fmt.Errorf("no tracks selected from playlist %q", s.selector.Playlist)
	}

	st, err := s.store.GetOrCreate(StageSelection)
	if err != nil {
		return err
	}

	artifact := filepath.Join(s.runDir, tracksArtifact)
	prior := make(map[string]types.Track)
	if artifactExists(artifact) {
		var saved []types.Track
		if err := readArtifact(artifact, &saved); err != nil {
			return err
		}
		for _, t := range saved {
			prior[t.Identifier()] = t
		}
	}

	var resolved []types.Track
	var done, skipped, failed int

	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			return err
		}

		id := track.Identifier()
		s.pub.Publish(Event{
			Type: EventItemProcessing, Stage: StageSelection, ItemID: id,
			Message: "Resolving " + track.Display(),
		})

		if st.IsProcessed(id) {
			if prev, ok := prior[id]; ok {
				resolved = append(resolved, prev)
				skipped++
				s.pub.Publish(Event{
					Type: EventItemSkipped, Stage: StageSelection, ItemID: id,
					Message: "Already resolved: " + track.Display(),
				})
				s.publishProgress(i+1, len(tracks))
				continue
			}
			// Checkpointed but missing from the artifact; resolve again.
			s.logger.Warn("Track checkpointed but absent from artifact, reprocessing",
				zap.String("id", id))
		}

		query := track.SearchQuery
		if query == "" {
			artists := text.RemoveRemixer(track.Title, track.Artists)
			if len(artists) == 0 {
				artists = track.Artists
			}
			query = text.BuildSearchQuery(track.Title, artists)
		}

		match, reason, err := s.resolve(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			reason = "search failed: " + err.Error()
		}
		if reason != "" {
			failed++
			s.fail(st, track, id, query, reason)
			s.publishProgress(i+1, len(tracks))
			continue
		}

		track.SearchQuery = query
		track.Catalog = types.CatalogIdentifiers{
			CatalogID:      match.CatalogTrackID,
			CatalogTitle:   match.Title,
			ISRC:           match.ISRC,
			CatalogArtists: match.Artists,
			CatalogLabels:  match.Labels,
		}
		resolved = append(resolved, track)
		done++

		if err := writeArtifact(artifact, resolved); err != nil {
			return err
		}
		if err := st.MarkProcessed(id); err != nil {
			return err
		}
		s.pub.Publish(Event{
			Type: EventItemCompleted, Stage: StageSelection, ItemID: id,
			Message: fmt.Sprintf("Resolved %s -> %s", track.Display(), match.CatalogTrackID),
		})
		s.publishProgress(i+1, len(tracks))
	}

	if err := writeArtifact(artifact, resolved); err != nil {
		return err
	}
	if err := st.SetMetadata(completedKey, "true"); err != nil {
		return err
	}

	s.logger.Info("Selection summary",
		zap.Int("resolved", done),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
	return nil
}

// resolve runs the catalog search and validates the top candidate. A
// non-empty reason means the track needs manual review.
func (s *SelectionStage) resolve(ctx context.Context, query string) (types.CandidateMatch, string, error) {
	matches, err := s.searcher.Search(ctx, query, 1)
	if err != nil {
		return types.CandidateMatch{}, "", err
	}
	if len(matches) == 0 {
		return types.CandidateMatch{}, "no catalog match", nil
	}
	match := matches[0]
	if kw := text.RejectedKeyword(match.Title); kw != "" {
		return types.CandidateMatch{}, fmt.Sprintf("rejected match %q: contains %q", match.Title, kw), nil
	}
	return match, "", nil
}

func (s *SelectionStage) fail(st *checkpoint.State, track types.Track, id, query, reason string) {
	if err := s.queue.Add(review.Item{
		ID:     id,
		Title:  track.Title,
		Artist: track.PrimaryArtist(),
		Reason: reason,
		Stage:  StageSelection,
		Query:  query,
	}); err != nil {
		s.logger.Warn("Failed to queue track for review", zap.String("id", id), zap.Error(err))
	}
	if err := st.MarkFailed(id); err != nil {
		s.logger.Warn("Failed to checkpoint failure", zap.String("id", id), zap.Error(err))
	}
	s.pub.Publish(Event{
		Type: EventItemFailed, Stage: StageSelection, ItemID: id,
		Message: track.Display(), Err: reason,
	})
}

func (s *SelectionStage) publishProgress(current, total int) {
	s.pub.Publish(Event{
		Type: EventProgress, Stage: StageSelection,
		Current: current, Total: total,
	})
}
