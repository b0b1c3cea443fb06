// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver collects every event it sees.
type recordingObserver struct {
	events []Event
}

func (r *recordingObserver) OnEvent(e Event) { r.events = append(r.events, e) }

func TestPublisherFanOut(t *testing.T) {
	var pub Publisher
	a := &recordingObserver{}
	b := &recordingObserver{}
	pub.Attach(a)
	pub.Attach(b)
	pub.Attach(a) // duplicate attach is a no-op

	pub.Publish(Event{Type: EventRunStarted, Message: "go"})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, EventRunStarted, a.events[0].Type)
	assert.False(t, a.events[0].Timestamp.IsZero(), "publish stamps the event time")
}

func TestPublisherDetach(t *testing.T) {
	var pub Publisher
	a := &recordingObserver{}
	b := &recordingObserver{}
	pub.Attach(a)
	pub.Attach(b)
	pub.Detach(a)

	pub.Publish(Event{Type: EventProgress})

	assert.Empty(t, a.events)
	assert.Len(t, b.events, 1)
}

func TestMetricsObserver(t *testing.T) {
	m := &MetricsObserver{}
	for _, e := range []Event{
		{Type: EventItemCompleted},
		{Type: EventItemCompleted},
		{Type: EventItemCompleted},
		{Type: EventItemFailed},
		{Type: EventItemSkipped},
		{Type: EventProgress}, // not counted
	} {
		m.OnEvent(e)
	}

	assert.Equal(t, 3, m.Completed)
	assert.Equal(t, 1, m.Failed)
	assert.Equal(t, 1, m.Skipped)
	assert.InDelta(t, 0.75, m.SuccessRate(), 1e-9)
}

func TestMetricsObserverSuccessRateWithNoItems(t *testing.T) {
	m := &MetricsObserver{}
	assert.Equal(t, 1.0, m.SuccessRate())
}

func TestFileObserverWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	fo, err := NewFileObserver(path)
	require.NoError(t, err)

	fo.OnEvent(Event{Type: EventStageStarted, Stage: StageSelection, Message: "start"})
	fo.OnEvent(Event{Type: EventItemCompleted, Stage: StageSelection, ItemID: "abc"})
	require.NoError(t, fo.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		lines = append(lines, e)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 2)
	assert.Equal(t, EventStageStarted, lines[0].Type)
	assert.Equal(t, "abc", lines[1].ItemID)
}

func TestFileObserverAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	fo, err := NewFileObserver(path)
	require.NoError(t, err)
	fo.OnEvent(Event{Type: EventRunStarted})
	require.NoError(t, fo.Close())

	fo, err = NewFileObserver(path)
	require.NoError(t, err)
	fo.OnEvent(Event{Type: EventRunCompleted})
	require.NoError(t, fo.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), string(EventRunStarted))
	assert.Contains(t, string(data), string(EventRunCompleted))
}

func TestFileObserverReportsWriteFailureAtClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	fo, err := NewFileObserver(path)
	require.NoError(t, err)
	require.NoError(t, fo.Close())

	// Writes against the closed log must not vanish silently.
	fo.OnEvent(Event{Type: EventRunStarted})
	err = fo.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.Contains(t, err.Error(), "writing event log")
}
