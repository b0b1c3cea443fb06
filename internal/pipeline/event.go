// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates the power-ranking run: the selection,
// enrichment, and ranking stages, checkpoint-based resumption, and event
// fan-out to observers.
package pipeline

import "time"

// EventType classifies pipeline events.
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"

	EventStageStarted   EventType = "stage_started"
	EventStageCompleted EventType = "stage_completed"
	EventStageSkipped   EventType = "stage_skipped"
	EventStageFailed    EventType = "stage_failed"

	EventItemProcessing EventType = "item_processing"
	EventItemCompleted  EventType = "item_completed"
	EventItemFailed     EventType = "item_failed"
	EventItemSkipped    EventType = "item_skipped"

	EventCheckpointSaved EventType = "checkpoint_saved"
	EventProgress        EventType = "progress"
	EventWarning         EventType = "warning"
)

// Event is a single pipeline occurrence delivered to observers.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Stage names the originating stage; empty for run-level events.
	Stage string `json:"stage,omitempty"`

	// ItemID identifies the track for item-level events.
	ItemID string `json:"item_id,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message,omitempty"`

	// Current and Total carry progress counters when known.
	Current int `json:"current,omitempty"`
	Total   int `json:"total,omitempty"`

	// Err carries the failure text for failed events.
	Err string `json:"error,omitempty"`
}

// Observer receives pipeline events. Implementations must tolerate being
// called from the orchestrator goroutine only; no internal locking is
// required.
type Observer interface {
	OnEvent(Event)
}

// Publisher fans events out to attached observers. The zero value is usable.
type Publisher struct {
	observers []Observer
}

// Attach registers an observer. Attaching the same observer twice is a no-op.
func (p *Publisher) Attach(o Observer) {
	for _, existing := range p.observers {
		if existing == o {
			return
		}
	}
	p.observers = append(p.observers, o)
}

// Detach removes an observer.
func (p *Publisher) Detach(o Observer) {
	for i, existing := range p.observers {
		if existing == o {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

// Publish stamps the event with the current time when unset and delivers it
// to every observer in attach order.
func (p *Publisher) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	for _, o := range p.observers {
		o.OnEvent(e)
	}
}
