// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovasilev/powerchart/internal/checkpoint"
	"github.com/ovasilev/powerchart/internal/review"
)

// Run directory layout under <data-dir>/runs/<year>_<timestamp>/.
const (
	runsDir        = "runs"
	checkpointsDir = "checkpoints"
	eventsFile     = "events.jsonl"

	// ReviewQueueFile is the review queue's filename inside a run directory.
	ReviewQueueFile = "review_queue.json"
)

// runIDFormat is the timestamp portion of a run directory name.
const runIDFormat = "20060102_150405"

// StageStatus is the lifecycle state of one stage within a run.
type StageStatus string

const (
	StatusPending         StageStatus = "pending"
	StatusRunning         StageStatus = "running"
	StatusSucceeded       StageStatus = "succeeded"
	StatusPartiallyFailed StageStatus = "partially_failed"
	StatusSkipped         StageStatus = "skipped"
	StatusAborted         StageStatus = "aborted"
)

// Options configures an orchestrated run.
type Options struct {
	// DataDir is the base data directory holding runs/.
	DataDir string

	// Year is the selection year; run directories are named by it.
	Year int

	// NewRun forces a fresh run directory instead of resuming the latest.
	NewRun bool

	// Stages lists the explicitly requested stage names. An explicitly
	// requested stage reruns even when checkpointed as completed. Empty
	// means all stages, skipping completed ones.
	Stages []string

	// Verbose surfaces item-level events on the console.
	Verbose bool

	// Progress enables the terminal progress line.
	Progress bool
}

// Orchestrator owns one run directory and drives the stages through it.
type Orchestrator struct {
	opts     Options
	runDir   string
	resumed  bool
	store    *checkpoint.Store
	queue    *review.Queue
	pub      *Publisher
	metrics  *MetricsObserver
	events   *FileObserver
	logger   *zap.Logger
	statuses map[string]StageStatus
}

// NewOrchestrator resolves the run directory (resuming the year's latest
// run unless opts.NewRun is set), opens the checkpoint store and review
// queue inside it, and attaches the default observers.
func NewOrchestrator(opts Options, logger *zap.Logger) (*Orchestrator, error) {
	if opts.Year == 0 {
		return nil, fmt.Errorf("year is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	runDir, resumed, err := resolveRunDir(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	store, err := checkpoint.NewStore(filepath.Join(runDir, checkpointsDir))
	if err != nil {
		return nil, err
	}
	queue, err := review.Open(filepath.Join(runDir, ReviewQueueFile))
	if err != nil {
		return nil, err
	}
	events, err := NewFileObserver(filepath.Join(runDir, eventsFile))
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		opts:     opts,
		runDir:   runDir,
		resumed:  resumed,
		store:    store,
		queue:    queue,
		pub:      &Publisher{},
		metrics:  &MetricsObserver{},
		events:   events,
		logger:   logger,
		statuses: make(map[string]StageStatus),
	}
	o.pub.Attach(NewConsoleObserver(logger, opts.Verbose))
	o.pub.Attach(events)
	o.pub.Attach(o.metrics)
	if opts.Progress {
		o.pub.Attach(NewProgressObserver(os.Stderr))
	}

	if resumed {
		logger.Info("Resuming run", zap.String("dir", runDir))
	} else {
		logger.Info("Starting new run", zap.String("dir", runDir))
	}
	return o, nil
}

// resolveRunDir finds the latest run for the year, or names a new one.
func resolveRunDir(opts Options) (dir string, resumed bool, err error) {
	base := filepath.Join(opts.DataDir, runsDir)

	if !opts.NewRun {
		latest, err := latestRun(base, opts.Year)
		if err != nil {
			return "", false, err
		}
		if latest != "" {
			return latest, true, nil
		}
	}

	name := fmt.Sprintf("%d_%s", opts.Year, time.Now().Format(runIDFormat))
	return filepath.Join(base, name), false, nil
}

// LatestRunDir returns the most recent run directory for year. It is the
// lookup used by commands that inspect a finished run rather than drive one.
func LatestRunDir(dataDir string, year int) (string, error) {
	dir, err := latestRun(filepath.Join(dataDir, runsDir), year)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", fmt.Errorf("no runs found for %d under %s", year, filepath.Join(dataDir, runsDir))
	}
	return dir, nil
}

// latestRun returns the lexically latest run directory for year, or "".
// Run names embed a sortable timestamp, so lexical order is time order.
func latestRun(base string, year int) (string, error) {
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scanning runs directory: %w", err)
	}

	prefix := fmt.Sprintf("%d_", year)
	var matching []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			matching = append(matching, e.Name())
		}
	}
	if len(matching) == 0 {
		return "", nil
	}
	sort.Strings(matching)
	return filepath.Join(base, matching[len(matching)-1]), nil
}

// RunDir returns the resolved run directory.
func (o *Orchestrator) RunDir() string { return o.runDir }

// Resumed reports whether this orchestrator picked up an existing run.
func (o *Orchestrator) Resumed() bool { return o.resumed }

// Store returns the run's checkpoint store.
func (o *Orchestrator) Store() *checkpoint.Store { return o.store }

// Queue returns the run's review queue.
func (o *Orchestrator) Queue() *review.Queue { return o.queue }

// Publisher returns the run's event publisher for wiring into stages.
func (o *Orchestrator) Publisher() *Publisher { return o.pub }

// Metrics returns the run's outcome tallies.
func (o *Orchestrator) Metrics() *MetricsObserver { return o.metrics }

// StageStatuses returns each stage's final status after Run.
func (o *Orchestrator) StageStatuses() map[string]StageStatus {
	out := make(map[string]StageStatus, len(o.statuses))
	for k, v := range o.statuses {
		out[k] = v
	}
	return out
}

// Run executes the stages in order. A stage checkpointed as completed is
// skipped unless it was explicitly requested. A fatal stage error aborts
// the run; per-item failures downgrade the stage to partially_failed but
// the run continues.
func (o *Orchestrator) Run(ctx context.Context, stages []Stage) error {
	for _, s := range stages {
		o.statuses[s.Name()] = StatusPending
	}

	o.pub.Publish(Event{
		Type:    EventRunStarted,
		Message: fmt.Sprintf("Run %s (%d stages)", filepath.Base(o.runDir), len(stages)),
	})

	for _, stage := range stages {
		name := stage.Name()

		done, err := o.stageCompleted(name)
		if err != nil {
			return err
		}
		if done && !o.explicitlyRequested(name) {
			o.statuses[name] = StatusSkipped
			o.pub.Publish(Event{
				Type: EventStageSkipped, Stage: name,
				Message: fmt.Sprintf("Stage %s already completed, skipping", name),
			})
			continue
		}

		o.statuses[name] = StatusRunning
		o.pub.Publish(Event{
			Type: EventStageStarted, Stage: name,
			Message: fmt.Sprintf("Stage %s started", name),
		})

		if err := stage.Run(ctx); err != nil {
			o.statuses[name] = StatusAborted
			o.pub.Publish(Event{
				Type: EventStageFailed, Stage: name,
				Message: fmt.Sprintf("Stage %s failed", name),
				Err:     err.Error(),
			})
			o.pub.Publish(Event{
				Type:    EventRunFailed,
				Message: fmt.Sprintf("Run aborted in stage %s", name),
				Err:     err.Error(),
			})
			return fmt.Errorf("stage %s: %w", name, err)
		}

		o.statuses[name] = o.finalStatus(name)
		o.pub.Publish(Event{
			Type: EventStageCompleted, Stage: name,
			Message: fmt.Sprintf("Stage %s %s", name, o.statuses[name]),
		})
	}

	msg := "Run completed: " + o.metrics.Summary()
	if pending := o.queue.PendingCount(); pending > 0 {
		msg += fmt.Sprintf("; %d tracks awaiting review in %s",
			pending, filepath.Join(o.runDir, ReviewQueueFile))
	}
	o.pub.Publish(Event{Type: EventRunCompleted, Message: msg})
	return nil
}

// stageCompleted reads the stage's checkpoint completion marker.
func (o *Orchestrator) stageCompleted(name string) (bool, error) {
	st, err := o.store.GetOrCreate(name)
	if err != nil {
		return false, err
	}
	return st.Metadata[completedKey] == "true", nil
}

// finalStatus downgrades a finished stage to partially_failed when its
// checkpoint carries failed items.
func (o *Orchestrator) finalStatus(name string) StageStatus {
	st, err := o.store.GetOrCreate(name)
	if err != nil {
		return StatusSucceeded
	}
	if st.FailedCount() > 0 {
		return StatusPartiallyFailed
	}
	return StatusSucceeded
}

func (o *Orchestrator) explicitlyRequested(name string) bool {
	for _, s := range o.opts.Stages {
		if s == name {
			return true
		}
	}
	return false
}

// Close releases the run's file handles.
func (o *Orchestrator) Close() error {
	return o.events.Close()
}
