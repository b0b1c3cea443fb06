// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// Stage names used for checkpoints, events, and the --stages flag.
const (
	StageSelection  = "selection"
	StageEnrichment = "enrichment"
	StageRanking    = "ranking"
)

// StageOrder lists the stages in dependency order.
var StageOrder = []string{StageSelection, StageEnrichment, StageRanking}

// Stage is one resumable pipeline step. Run returns an error only for fatal
// conditions (missing input artifact, unreadable checkpoint); per-item
// failures are recorded in the checkpoint and review queue and do not abort
// the stage.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// completedKey marks a finished stage in checkpoint metadata so a resumed
// run can skip it without re-reading its inputs.
const completedKey = "completed"

// writeArtifact serializes v to the run artifact at path, JSON or YAML by
// extension, via a temp file and rename so partially written artifacts
// never replace good ones.
func writeArtifact(path string, v any) error {
	var data []byte
	var err error
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(v)
	default:
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("serializing artifact %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating artifact temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing artifact %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing artifact temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing artifact %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readArtifact loads the run artifact at path into v, JSON or YAML by
// extension.
func readArtifact(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading artifact %s: %w", filepath.Base(path), err)
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parsing artifact %s: %w", filepath.Base(path), err)
	}
	return nil
}

// artifactExists reports whether a run artifact is present.
func artifactExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
