// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// ConsoleObserver logs pipeline events through the run logger. Item-level
// chatter stays at debug unless verbose is set.
type ConsoleObserver struct {
	logger  *zap.Logger
	verbose bool
}

// NewConsoleObserver returns a console observer writing through logger.
func NewConsoleObserver(logger *zap.Logger, verbose bool) *ConsoleObserver {
	return &ConsoleObserver{logger: logger.Named("pipeline"), verbose: verbose}
}

func (c *ConsoleObserver) OnEvent(e Event) {
	fields := []zap.Field{zap.String("event", string(e.Type))}
	if e.Stage != "" {
		fields = append(fields, zap.String("stage", e.Stage))
	}
	if e.ItemID != "" {
		fields = append(fields, zap.String("item", e.ItemID))
	}
	if e.Total > 0 {
		fields = append(fields, zap.Int("current", e.Current), zap.Int("total", e.Total))
	}
	if e.Err != "" {
		fields = append(fields, zap.String("error", e.Err))
	}

	switch e.Type {
	case EventRunFailed, EventStageFailed:
		c.logger.Error(e.Message, fields...)
	case EventItemFailed, EventWarning:
		c.logger.Warn(e.Message, fields...)
	case EventItemProcessing, EventItemCompleted, EventItemSkipped, EventCheckpointSaved, EventProgress:
		if c.verbose {
			c.logger.Info(e.Message, fields...)
		} else {
			c.logger.Debug(e.Message, fields...)
		}
	default:
		c.logger.Info(e.Message, fields...)
	}
}

// FileObserver appends every event as one JSON line to the run's event log,
// giving each run a replayable audit trail.
type FileObserver struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder

	// writeErr holds the first failed event write, reported at Close.
	writeErr error
}

// NewFileObserver opens (or creates) the event log at path for appending.
func NewFileObserver(path string) (*FileObserver, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log %s: %w", path, err)
	}
	return &FileObserver{f: f, enc: json.NewEncoder(f)}, nil
}

func (fo *FileObserver) OnEvent(e Event) {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	// Encode writes a trailing newline, giving JSONL framing.
	if err := fo.enc.Encode(e); err != nil && fo.writeErr == nil {
		fo.writeErr = fmt.Errorf("writing event log: %w", err)
	}
}

// Close closes the event log. It returns the first write failure seen, if
// any, so a truncated audit trail does not go unnoticed.
func (fo *FileObserver) Close() error {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	cerr := fo.f.Close()
	if fo.writeErr != nil {
		return fo.writeErr
	}
	return cerr
}

// MetricsObserver tallies item outcomes for the end-of-run summary.
type MetricsObserver struct {
	Completed int
	Failed    int
	Skipped   int
}

func (m *MetricsObserver) OnEvent(e Event) {
	switch e.Type {
	case EventItemCompleted:
		m.Completed++
	case EventItemFailed:
		m.Failed++
	case EventItemSkipped:
		m.Skipped++
	}
}

// SuccessRate returns completed / (completed + failed) in [0,1]; 1 when no
// items were attempted.
func (m *MetricsObserver) SuccessRate() float64 {
	attempted := m.Completed + m.Failed
	if attempted == 0 {
		return 1
	}
	return float64(m.Completed) / float64(attempted)
}

// Summary formats the tallies in one line.
func (m *MetricsObserver) Summary() string {
	return fmt.Sprintf("%d completed, %d skipped, %d failed (%.0f%% success)",
		m.Completed, m.Skipped, m.Failed, m.SuccessRate()*100)
}

// ProgressObserver renders a coarse text progress line per stage. It writes
// carriage-return updates, suitable for an interactive terminal.
type ProgressObserver struct {
	w     io.Writer
	stage string
}

// NewProgressObserver writes progress lines to w (typically os.Stderr).
func NewProgressObserver(w io.Writer) *ProgressObserver {
	return &ProgressObserver{w: w}
}

func (p *ProgressObserver) OnEvent(e Event) {
	switch e.Type {
	case EventStageStarted:
		p.stage = e.Stage
	case EventProgress:
		if e.Total > 0 {
			fmt.Fprintf(p.w, "\r%s: %d/%d", p.stage, e.Current, e.Total)
		}
	case EventStageCompleted, EventStageFailed:
		fmt.Fprintln(p.w)
	}
}
