// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package text cleans track titles and artist names before they are used in
// catalog search queries. Library exports carry bracketed mix annotations,
// feature credits and decorative separators that hurt search accuracy.
package text

import (
	"regexp"
	"strings"
)

// titlePatternsToRemove are stripped from titles case-insensitively.
// Specific bracketed suffixes go first, stray punctuation last.
var titlePatternsToRemove = []string{
	"[extended mix]",
	"[original mix]",
	"[remix]",
	"[extended version]",
	"[club edit]",
	"[",
	"]",
	"?",
	"(",
	")",
}

// titlePatternsToSpace are replaced with a single space.
var titlePatternsToSpace = []string{
	" × ", // multiplication sign used as an artist separator
	", ",
}

// RejectKeywords flag catalog search results that are almost certainly the
// wrong recording. Matching is substring, case-insensitive, against the
// result title.
var RejectKeywords = []string{
	"karaoke",
	"instrumental",
	"acapella",
	"cover version",
	"tribute",
}

var featurePattern = regexp.MustCompile(`(?i)\s*[(\[](f(?:ea)?t\.?|featuring)\s+[^)\]]+[)\]]`)

// FormatTitle lowercases a title and strips mix annotations and punctuation
// that interfere with catalog search.
func FormatTitle(title string) string {
	result := strings.ToLower(title)
	for _, p := range titlePatternsToRemove {
		result = strings.ReplaceAll(result, p, "")
	}
	for _, p := range titlePatternsToSpace {
		result = strings.ReplaceAll(result, p, " ")
	}
	return strings.TrimSpace(result)
}

// RemoveRemixer filters out artists whose name appears inside the title.
// A remixer is credited both in the title ("song (x remix)") and the artist
// list, but catalog search wants only the original artists.
func RemoveRemixer(title string, artists []string) []string {
	titleLower := strings.ToLower(title)
	var out []string
	for _, a := range artists {
		if !strings.Contains(titleLower, strings.ToLower(a)) {
			out = append(out, a)
		}
	}
	return out
}

// FormatArtist lowercases an artist name and drops feature annotations.
// Featured artists rarely appear in catalog main-artist fields, so keeping
// them produces query mismatches.
func FormatArtist(artist string) string {
	result := featurePattern.ReplaceAllString(artist, "")

	result = strings.ReplaceAll(result, "×", " ")
	result = strings.ReplaceAll(result, "&", " ")
	for _, c := range []string{"(", ")", "[", "]"} {
		result = strings.ReplaceAll(result, c, "")
	}

	return strings.ToLower(strings.Join(strings.Fields(result), " "))
}

// BuildSearchQuery joins formatted artists and a formatted title into the
// query string sent to the catalog search endpoint.
func BuildSearchQuery(title string, artists []string) string {
	parts := make([]string, 0, len(artists)+1)
	for _, a := range artists {
		if cleaned := FormatArtist(a); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	parts = append(parts, FormatTitle(title))
	return strings.TrimSpace(strings.Join(parts, " "))
}

// RejectedKeyword returns the first reject keyword found in the candidate
// title, or "" when the title looks acceptable.
func RejectedKeyword(candidateTitle string) string {
	lower := strings.ToLower(candidateTitle)
	for _, kw := range RejectKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}
