// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists per-stage progress so interrupted runs resume
// where they left off instead of repeating finished work.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Store manages checkpoint files inside a single run directory. One file per
// stage, named <stage>_checkpoint.json.
type Store struct {
	dir string
}

// NewStore creates the checkpoint directory if needed and returns a store
// over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// State is the persisted progress of one stage. Processed and failed item
// sets are disjoint: marking an item processed removes it from the failed
// set and vice versa.
type State struct {
	StageName   string            `json:"stage_name"`
	CreatedAt   time.Time         `json:"created_at"`
	LastUpdated time.Time         `json:"last_updated"`
	Metadata    map[string]string `json:"metadata"`

	processed map[string]bool
	failed    map[string]bool
	store     *Store
}

// stateFile is the on-disk shape. Item sets serialize as sorted lists so
// files diff cleanly between runs.
type stateFile struct {
	StageName   string            `json:"stage_name"`
	CreatedAt   time.Time         `json:"created_at"`
	LastUpdated time.Time         `json:"last_updated"`
	Processed   []string          `json:"processed_items"`
	Failed      []string          `json:"failed_items"`
	Metadata    map[string]string `json:"metadata"`
}

func (s *Store) path(stage string) string {
	return filepath.Join(s.dir, stage+"_checkpoint.json")
}

// GetOrCreate loads the stage's checkpoint, or returns a fresh one when no
// file exists yet. A fresh checkpoint is not written to disk until the first
// mutation.
func (s *Store) GetOrCreate(stage string) (*State, error) {
	st := &State{
		StageName: stage,
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
		processed: make(map[string]bool),
		failed:    make(map[string]bool),
		store:     s,
	}

	data, err := os.ReadFile(s.path(stage))
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint for %s: %w", stage, err)
	}

	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing checkpoint for %s: %w", stage, err)
	}

	st.CreatedAt = f.CreatedAt
	st.LastUpdated = f.LastUpdated
	if f.Metadata != nil {
		st.Metadata = f.Metadata
	}
	for _, id := range f.Processed {
		st.processed[id] = true
	}
	for _, id := range f.Failed {
		st.failed[id] = true
	}
	return st, nil
}

// Clear deletes the stage's checkpoint file. Missing files are not an error.
func (s *Store) Clear(stage string) error {
	err := os.Remove(s.path(stage))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing checkpoint for %s: %w", stage, err)
	}
	return nil
}

// MarkProcessed records an item as done and persists immediately, so a crash
// between items loses at most the item in flight.
func (st *State) MarkProcessed(id string) error {
	delete(st.failed, id)
	st.processed[id] = true
	return st.save()
}

// MarkFailed records an item as failed and persists immediately.
func (st *State) MarkFailed(id string) error {
	delete(st.processed, id)
	st.failed[id] = true
	return st.save()
}

// IsProcessed reports whether the item completed in a previous attempt.
func (st *State) IsProcessed(id string) bool { return st.processed[id] }

// IsFailed reports whether the item failed in a previous attempt.
func (st *State) IsFailed(id string) bool { return st.failed[id] }

// ProcessedCount returns the number of completed items.
func (st *State) ProcessedCount() int { return len(st.processed) }

// FailedCount returns the number of failed items.
func (st *State) FailedCount() int { return len(st.failed) }

// FailedItems returns the failed item IDs in sorted order.
func (st *State) FailedItems() []string {
	ids := make([]string, 0, len(st.failed))
	for id := range st.failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetMetadata stores a key/value pair on the checkpoint and persists it.
func (st *State) SetMetadata(key, value string) error {
	st.Metadata[key] = value
	return st.save()
}

// save writes the checkpoint atomically: serialize to a temp file in the
// same directory, then rename over the target.
func (st *State) save() error {
	st.LastUpdated = time.Now().UTC()

	f := stateFile{
		StageName:   st.StageName,
		CreatedAt:   st.CreatedAt,
		LastUpdated: st.LastUpdated,
		Processed:   sortedKeys(st.processed),
		Failed:      sortedKeys(st.failed),
		Metadata:    st.Metadata,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing checkpoint for %s: %w", st.StageName, err)
	}

	target := st.store.path(st.StageName)
	tmp, err := os.CreateTemp(st.store.dir, st.StageName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating checkpoint temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing checkpoint for %s: %w", st.StageName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing checkpoint for %s: %w", st.StageName, err)
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
