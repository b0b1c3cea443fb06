// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package text

import (
	"reflect"
	"testing"
)

func TestFormatTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Song Name [Extended Mix]", "song name"},
		{"Song Name [ORIGINAL MIX]", "song name"},
		{"Song Name [Club Edit]", "song name"},
		{"What? A Song", "what a song"},
		{"Song (Radio)", "song radio"},
		{"One, Two", "one two"},
		{"Plain Song", "plain song"},
	}
	for _, tt := range tests {
		if got := FormatTitle(tt.in); got != tt.want {
			t.Errorf("FormatTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRemoveRemixer(t *testing.T) {
	tests := []struct {
		title   string
		artists []string
		want    []string
	}{
		{
			title:   "original song (artist b remix)",
			artists: []string{"artist a", "artist b"},
			want:    []string{"artist a"},
		},
		{
			title:   "Original Song (Artist B Remix)",
			artists: []string{"Artist A", "Artist B"},
			want:    []string{"Artist A"},
		},
		{
			title:   "plain song",
			artists: []string{"artist a", "artist b"},
			want:    []string{"artist a", "artist b"},
		},
	}
	for _, tt := range tests {
		if got := RemoveRemixer(tt.title, tt.artists); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("RemoveRemixer(%q, %v) = %v, want %v", tt.title, tt.artists, got, tt.want)
		}
	}
}

func TestFormatArtist(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Artist A (feat. Artist B)", "artist a"},
		{"Artist A [ft. Artist B]", "artist a"},
		{"Artist A (featuring Artist B)", "artist a"},
		{"Artist A × Artist B", "artist a artist b"},
		{"Artist A & Artist B", "artist a artist b"},
		{"Artist (Live)", "artist live"},
		{"  Spaced   Out  ", "spaced out"},
	}
	for _, tt := range tests {
		if got := FormatArtist(tt.in); got != tt.want {
			t.Errorf("FormatArtist(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildSearchQuery(t *testing.T) {
	got := BuildSearchQuery("Song Name [Extended Mix]", []string{"Artist A", "Artist B"})
	want := "artist a artist b song name"
	if got != want {
		t.Errorf("BuildSearchQuery = %q, want %q", got, want)
	}

	// Feature credits drop out of the artist part.
	got = BuildSearchQuery("Song", []string{"Artist A (feat. Artist C)"})
	if got != "artist a song" {
		t.Errorf("BuildSearchQuery with feature = %q, want %q", got, "artist a song")
	}
}

func TestRejectedKeyword(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Song Name (Karaoke Version)", "karaoke"},
		{"Song Name - Instrumental", "instrumental"},
		{"Song Name (Acapella)", "acapella"},
		{"Song Name (Cover Version)", "cover version"},
		{"A Tribute to Somebody", "tribute"},
		{"Song Name (Extended Mix)", ""},
	}
	for _, tt := range tests {
		if got := RejectedKeyword(tt.title); got != tt.want {
			t.Errorf("RejectedKeyword(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
