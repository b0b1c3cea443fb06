// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library reads the local music library export and selects the
// tracks a run will process. The export is a YAML file of playlists, each a
// list of tracks with artists, year, genres and grouping.
package library

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ovasilev/powerchart/internal/text"
	"github.com/ovasilev/powerchart/pkg/types"
)

// export mirrors the library export file layout.
type export struct {
	Playlists []playlist `yaml:"playlists"`
}

type playlist struct {
	Name   string      `yaml:"name"`
	Tracks []trackItem `yaml:"tracks"`
}

type trackItem struct {
	Title   string   `yaml:"title"`
	Artists []string `yaml:"artists"`
	Year    int      `yaml:"year"`
	Genres  []string `yaml:"genres"`

	// Grouping carries record labels, semicolon-separated in the export.
	Grouping string `yaml:"grouping"`
}

// splitGrouping splits a semicolon-separated grouping field into labels.
func splitGrouping(grouping string) []string {
	var labels []string
	for _, part := range strings.Split(grouping, ";") {
		if label := strings.TrimSpace(part); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

// Selector narrows which library tracks a run processes.
type Selector struct {
	// Playlist is the playlist name to read. Required.
	Playlist string

	// Year filters tracks by release year when non-zero.
	Year int
}

// Reader loads tracks from a library export file.
type Reader struct {
	path string
}

// NewReader returns a reader over the export at path. The file is read on
// each ListTracks call, so edits between runs are picked up.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ListTracks returns the tracks selected by sel, each with a search query
// prebuilt from its cleaned title and artists. A missing export file or
// playlist is an error: the library is the pipeline's input and a run
// cannot proceed without it.
func (r *Reader) ListTracks(sel Selector) ([]types.Track, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("reading library export %s: %w", r.path, err)
	}

	var ex export
	if err := yaml.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("parsing library export %s: %w", r.path, err)
	}

	pl, err := findPlaylist(ex.Playlists, sel.Playlist)
	if err != nil {
		return nil, err
	}

	var tracks []types.Track
	for _, item := range pl.Tracks {
		if sel.Year != 0 && item.Year != sel.Year {
			continue
		}

		artists := text.RemoveRemixer(item.Title, item.Artists)
		if len(artists) == 0 {
			// Every artist matched the title (self-remix); keep the
			// original credits rather than searching with none.
			artists = item.Artists
		}

		tracks = append(tracks, types.Track{
			Title:       item.Title,
			Artists:     item.Artists,
			Year:        item.Year,
			Genres:      item.Genres,
			Grouping:    splitGrouping(item.Grouping),
			SearchQuery: text.BuildSearchQuery(item.Title, artists),
		})
	}
	return tracks, nil
}

func findPlaylist(playlists []playlist, name string) (playlist, error) {
	if name == "" {
		return playlist{}, fmt.Errorf("playlist name is required")
	}
	var names []string
	for _, pl := range playlists {
		if strings.EqualFold(pl.Name, name) {
			return pl, nil
		}
		names = append(names, pl.Name)
	}
	return playlist{}, fmt.Errorf("playlist %q not found in library export (have: %s)",
		name, strings.Join(names, ", "))
}
