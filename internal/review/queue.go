// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review maintains the manual review queue: tracks the pipeline
// could not resolve automatically, collected for a human to look at.
package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Item is one track awaiting (or done with) manual review.
type Item struct {
	// ID is the track identifier; one queue entry per ID.
	ID string `json:"id"`

	Title  string `json:"title"`
	Artist string `json:"artist"`

	// Reason explains why the track landed in the queue, e.g.
	// "no catalog match" or "rejected keyword: karaoke".
	Reason string `json:"reason"`

	// Stage names the pipeline stage that queued the item.
	Stage string `json:"stage"`

	// Query is the search query that was attempted, when relevant.
	Query string `json:"query,omitempty"`

	AddedAt time.Time `json:"added_at"`

	// Resolved items stay in the queue as an audit trail.
	Resolved   bool      `json:"resolved"`
	Resolution string    `json:"resolution,omitempty"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

// Queue is a file-backed review queue. Items are keyed by track identifier,
// so re-running a stage never duplicates entries.
type Queue struct {
	path  string
	items []Item
	index map[string]int
}

// Open loads the queue at path, or starts an empty one when the file does
// not exist yet.
func Open(path string) (*Queue, error) {
	q := &Queue{path: path, index: make(map[string]int)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading review queue: %w", err)
	}
	if err := json.Unmarshal(data, &q.items); err != nil {
		return nil, fmt.Errorf("parsing review queue: %w", err)
	}
	for i, item := range q.items {
		q.index[item.ID] = i
	}
	return q, nil
}

// Add appends the item and persists the queue. When an item with the same ID
// is already queued the call is a no-op, so resumed runs cannot pile up
// duplicates.
func (q *Queue) Add(item Item) error {
	if _, exists := q.index[item.ID]; exists {
		return nil
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	q.index[item.ID] = len(q.items)
	q.items = append(q.items, item)
	return q.save()
}

// Resolve marks the item resolved with the given note and persists. The item
// is kept in the queue so past decisions remain visible.
func (q *Queue) Resolve(id, resolution string) error {
	i, exists := q.index[id]
	if !exists {
		return fmt.Errorf("review item %s not found", id)
	}
	q.items[i].Resolved = true
	q.items[i].Resolution = resolution
	q.items[i].ResolvedAt = time.Now().UTC()
	return q.save()
}

// Has reports whether an item with the ID exists, resolved or not.
func (q *Queue) Has(id string) bool {
	_, exists := q.index[id]
	return exists
}

// Pending returns the unresolved items in insertion order.
func (q *Queue) Pending() []Item {
	var out []Item
	for _, item := range q.items {
		if !item.Resolved {
			out = append(out, item)
		}
	}
	return out
}

// Resolved returns the resolved items in insertion order.
func (q *Queue) Resolved() []Item {
	var out []Item
	for _, item := range q.items {
		if item.Resolved {
			out = append(out, item)
		}
	}
	return out
}

// PendingCount returns the number of unresolved items.
func (q *Queue) PendingCount() int { return len(q.Pending()) }

// ResolvedCount returns the number of resolved items.
func (q *Queue) ResolvedCount() int { return len(q.Resolved()) }

// Len returns the total number of items, resolved included.
func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) save() error {
	data, err := json.MarshalIndent(q.items, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing review queue: %w", err)
	}

	dir := filepath.Dir(q.path)
	tmp, err := os.CreateTemp(dir, "review-*.tmp")
	if err != nil {
		return fmt.Errorf("creating review queue temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing review queue: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing review queue temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), q.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing review queue: %w", err)
	}
	return nil
}
