// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the powerchart pipeline:
// library tracks, per-platform metric sets, ranking results, and the
// per-concern configuration structs consumed by the CLI and stages.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// identifierLen is the number of hex characters kept from the identity hash.
const identifierLen = 12

// CatalogIdentifiers links a library track to its catalog record.
// Populated during the selection stage; empty CatalogID means the track
// was not resolved.
type CatalogIdentifiers struct {
	// CatalogID is the catalog track ID (short alphanumeric token).
	CatalogID string `json:"catalog_id" yaml:"catalog_id"`

	// CatalogTitle is the track title as stored in the catalog.
	CatalogTitle string `json:"catalog_title,omitempty" yaml:"catalog_title,omitempty"`

	// ISRC is the International Standard Recording Code, when known.
	ISRC string `json:"isrc,omitempty" yaml:"isrc,omitempty"`

	// CatalogArtists lists artist names as credited by the catalog.
	CatalogArtists []string `json:"catalog_artists,omitempty" yaml:"catalog_artists,omitempty"`

	// CatalogLabels lists record labels as reported by the catalog.
	CatalogLabels []string `json:"catalog_labels,omitempty" yaml:"catalog_labels,omitempty"`
}

// Track is a single library track. Fields are set once when the track is
// read from the library export and treated as immutable afterwards; stages
// return copies rather than mutating in place.
type Track struct {
	// Title is the track title as stored in the library.
	Title string `json:"title" yaml:"title"`

	// Artists lists credited artist names; the first entry is the primary artist.
	Artists []string `json:"artists" yaml:"artists"`

	// Year is the release year.
	Year int `json:"year" yaml:"year"`

	// Genres holds genre tags from the library.
	Genres []string `json:"genres,omitempty" yaml:"genres,omitempty"`

	// Grouping carries the library grouping field (record labels in this setup).
	Grouping []string `json:"grouping,omitempty" yaml:"grouping,omitempty"`

	// SearchQuery is the catalog search query used during selection,
	// kept for review-queue debugging.
	SearchQuery string `json:"search_query,omitempty" yaml:"search_query,omitempty"`

	// Catalog holds the resolved catalog identifiers.
	Catalog CatalogIdentifiers `json:"catalog" yaml:"catalog"`
}

// PrimaryArtist returns the first credited artist, or "" for an empty list.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// AllArtists returns the artist names joined by ", ".
func (t Track) AllArtists() string {
	return strings.Join(t.Artists, ", ")
}

// Identifier derives the stable identity token for this track: a sha256 of
// the lower-cased primary artist, title, and year joined by "|", truncated
// to a short fixed width. The same logical track always hashes to the same
// identifier across runs, which checkpoint resumption depends on.
func (t Track) Identifier() string {
	key := fmt.Sprintf("%s|%s|%d",
		strings.ToLower(t.PrimaryArtist()),
		strings.ToLower(t.Title),
		t.Year,
	)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:identifierLen]
}

// Display returns "artist - title" for log and console messages.
func (t Track) Display() string {
	return t.PrimaryArtist() + " - " + t.Title
}

// CandidateMatch is a single catalog search result considered during
// selection.
type CandidateMatch struct {
	// CatalogTrackID is the catalog's track ID for this candidate.
	CatalogTrackID string `json:"catalog_track_id"`

	// Title is the candidate title in the catalog.
	Title string `json:"title"`

	// ISRC is the candidate's recording code, when the catalog knows it.
	ISRC string `json:"isrc,omitempty"`

	// Artists lists the candidate's credited artists.
	Artists []string `json:"artists,omitempty"`

	// Labels lists the candidate's record labels.
	Labels []string `json:"labels,omitempty"`
}
