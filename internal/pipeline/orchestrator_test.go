// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovasilev/powerchart/internal/review"
)

func reviewItem(id, reason string) review.Item {
	return review.Item{ID: id, Title: "t", Artist: "a", Reason: reason, Stage: StageSelection}
}

// fakeStage is a scripted pipeline stage.
type fakeStage struct {
	name string
	runs int
	fn   func(o *Orchestrator) error
	orch *Orchestrator
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Run(context.Context) error {
	f.runs++
	if f.fn != nil {
		return f.fn(f.orch)
	}
	return nil
}

// completeStage marks the stage's checkpoint completed, as real stages do.
func completeStage(o *Orchestrator, name string) error {
	st, err := o.Store().GetOrCreate(name)
	if err != nil {
		return err
	}
	return st.SetMetadata("completed", "true")
}

func newTestOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(opts, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o
}

func TestNewRunCreatesYearPrefixedDirectory(t *testing.T) {
	dataDir := t.TempDir()
	o := newTestOrchestrator(t, Options{DataDir: dataDir, Year: 2024})

	assert.False(t, o.Resumed())
	assert.True(t, strings.HasPrefix(filepath.Base(o.RunDir()), "2024_"))
	assert.Equal(t, filepath.Join(dataDir, "runs"), filepath.Dir(o.RunDir()))
}

func TestOrchestratorResumesLatestRunForYear(t *testing.T) {
	dataDir := t.TempDir()

	first := newTestOrchestrator(t, Options{DataDir: dataDir, Year: 2024})
	firstDir := first.RunDir()
	first.Close()

	second := newTestOrchestrator(t, Options{DataDir: dataDir, Year: 2024})
	assert.True(t, second.Resumed())
	assert.Equal(t, firstDir, second.RunDir())

	// A different year never resumes another year's run.
	other := newTestOrchestrator(t, Options{DataDir: dataDir, Year: 2023})
	assert.False(t, other.Resumed())
	assert.NotEqual(t, firstDir, other.RunDir())
}

func TestOrchestratorRunsStagesInOrder(t *testing.T) {
	o := newTestOrchestrator(t, Options{DataDir: t.TempDir(), Year: 2024})
	rec := &recordingObserver{}
	o.Publisher().Attach(rec)

	var order []string
	mk := func(name string) *fakeStage {
		return &fakeStage{name: name, orch: o, fn: func(o *Orchestrator) error {
			order = append(order, name)
			return completeStage(o, name)
		}}
	}

	err := o.Run(context.Background(), []Stage{
		mk(StageSelection), mk(StageEnrichment), mk(StageRanking),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{StageSelection, StageEnrichment, StageRanking}, order)

	statuses := o.StageStatuses()
	assert.Equal(t, StatusSucceeded, statuses[StageSelection])
	assert.Equal(t, StatusSucceeded, statuses[StageRanking])

	// run_started first, run_completed last.
	require.NotEmpty(t, rec.events)
	assert.Equal(t, EventRunStarted, rec.events[0].Type)
	assert.Equal(t, EventRunCompleted, rec.events[len(rec.events)-1].Type)
}

func TestOrchestratorSkipsCompletedStages(t *testing.T) {
	dataDir := t.TempDir()
	o := newTestOrchestrator(t, Options{DataDir: dataDir, Year: 2024})

	sel := &fakeStage{name: StageSelection, orch: o, fn: func(o *Orchestrator) error {
		return completeStage(o, StageSelection)
	}}
	require.NoError(t, o.Run(context.Background(), []Stage{sel}))
	require.Equal(t, 1, sel.runs)
	o.Close()

	// The resumed run skips the completed stage.
	resumed := newTestOrchestrator(t, Options{DataDir: dataDir, Year: 2024})
	rec := &recordingObserver{}
	resumed.Publisher().Attach(rec)
	sel2 := &fakeStage{name: StageSelection, orch: resumed}
	require.NoError(t, resumed.Run(context.Background(), []Stage{sel2}))
	assert.Equal(t, 0, sel2.runs)
	assert.Equal(t, StatusSkipped, resumed.StageStatuses()[StageSelection])

	// The skip is a stage-level event: no phantom item shows up in the
	// run summary, and the event log labels it stage_skipped.
	assert.Equal(t, 0, resumed.Metrics().Skipped)
	assert.Equal(t, "0 completed, 0 skipped, 0 failed (100% success)", resumed.Metrics().Summary())
	var skips []Event
	for _, e := range rec.events {
		if e.Type == EventStageSkipped {
			skips = append(skips, e)
		}
		assert.NotEqual(t, EventItemSkipped, e.Type)
	}
	require.Len(t, skips, 1)
	assert.Equal(t, StageSelection, skips[0].Stage)
}

func TestExplicitlyRequestedStageRerunsEvenWhenCompleted(t *testing.T) {
	dataDir := t.TempDir()
	o := newTestOrchestrator(t, Options{DataDir: dataDir, Year: 2024})
	require.NoError(t, completeStage(o, StageRanking))
	o.Close()

	resumed := newTestOrchestrator(t, Options{
		DataDir: dataDir, Year: 2024,
		Stages: []string{StageRanking},
	})
	rank := &fakeStage{name: StageRanking, orch: resumed, fn: func(o *Orchestrator) error {
		return completeStage(o, StageRanking)
	}}
	require.NoError(t, resumed.Run(context.Background(), []Stage{rank}))
	assert.Equal(t, 1, rank.runs)
}

func TestNewRunFlagIgnoresExistingRuns(t *testing.T) {
	dataDir := t.TempDir()
	first := newTestOrchestrator(t, Options{DataDir: dataDir, Year: 2024})
	require.NoError(t, completeStage(first, StageSelection))
	first.Close()

	fresh := newTestOrchestrator(t, Options{DataDir: dataDir, Year: 2024, NewRun: true})
	assert.False(t, fresh.Resumed())

	// The fresh run has no completed stages.
	sel := &fakeStage{name: StageSelection, orch: fresh, fn: func(o *Orchestrator) error {
		return completeStage(o, StageSelection)
	}}
	require.NoError(t, fresh.Run(context.Background(), []Stage{sel}))
	assert.Equal(t, 1, sel.runs)
}

func TestFatalStageErrorAbortsRun(t *testing.T) {
	o := newTestOrchestrator(t, Options{DataDir: t.TempDir(), Year: 2024})
	rec := &recordingObserver{}
	o.Publisher().Attach(rec)

	boom := &fakeStage{name: StageSelection, orch: o, fn: func(*Orchestrator) error {
		return fmt.Errorf("library export missing")
	}}
	next := &fakeStage{name: StageEnrichment, orch: o}

	err := o.Run(context.Background(), []Stage{boom, next})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library export missing")
	assert.Equal(t, 0, next.runs)
	assert.Equal(t, StatusAborted, o.StageStatuses()[StageSelection])
	assert.Equal(t, StatusPending, o.StageStatuses()[StageEnrichment])

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, EventRunFailed, last.Type)
}

func TestStageWithFailedItemsIsPartiallyFailed(t *testing.T) {
	o := newTestOrchestrator(t, Options{DataDir: t.TempDir(), Year: 2024})

	sel := &fakeStage{name: StageSelection, orch: o, fn: func(o *Orchestrator) error {
		st, err := o.Store().GetOrCreate(StageSelection)
		if err != nil {
			return err
		}
		if err := st.MarkProcessed("track-1"); err != nil {
			return err
		}
		if err := st.MarkFailed("track-2"); err != nil {
			return err
		}
		return st.SetMetadata("completed", "true")
	}}

	require.NoError(t, o.Run(context.Background(), []Stage{sel}))
	assert.Equal(t, StatusPartiallyFailed, o.StageStatuses()[StageSelection])
}

func TestRunCompletedMentionsPendingReviews(t *testing.T) {
	o := newTestOrchestrator(t, Options{DataDir: t.TempDir(), Year: 2024})
	rec := &recordingObserver{}
	o.Publisher().Attach(rec)

	sel := &fakeStage{name: StageSelection, orch: o, fn: func(o *Orchestrator) error {
		return o.Queue().Add(reviewItem("track-1", "no catalog match"))
	}}
	require.NoError(t, o.Run(context.Background(), []Stage{sel}))

	last := rec.events[len(rec.events)-1]
	require.Equal(t, EventRunCompleted, last.Type)
	assert.Contains(t, last.Message, "awaiting review")
}
