// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// MetricSet holds the per-platform numeric metrics gathered for one track.
//
// A metric named "spotify_streams_total" belongs to the "spotify" platform.
// Values default to zero, which means "no data observed"; that is distinct
// from the platform being absent from Platforms, which means the track has
// no link on that platform at all ("not applicable"). The scorer relies on
// this distinction for availability weighting, so both maps must survive
// serialization round trips intact.
type MetricSet struct {
	// Values maps metric name to raw value. Missing key reads as 0.
	Values map[string]float64 `json:"values" yaml:"values"`

	// Platforms holds the platforms on which the track exists. A metric
	// whose platform is not present here is not applicable to the track.
	Platforms map[string]bool `json:"platforms" yaml:"platforms"`
}

// NewMetricSet returns an empty MetricSet with both maps allocated.
func NewMetricSet() MetricSet {
	return MetricSet{
		Values:    make(map[string]float64),
		Platforms: make(map[string]bool),
	}
}

// Value returns the raw value for name, or 0 when absent.
func (m MetricSet) Value(name string) float64 {
	return m.Values[name]
}

// Applicable reports whether the metric's platform exists for this track.
func (m MetricSet) Applicable(metric string) bool {
	return m.Platforms[MetricPlatform(metric)]
}

// MetricPlatform extracts the platform component of a metric name.
// Platform names may themselves contain underscores ("apple_music"), so the
// longest known prefix wins; unknown prefixes fall back to the first token.
func MetricPlatform(metric string) string {
	for _, p := range multiWordPlatforms {
		if strings.HasPrefix(metric, p+"_") {
			return p
		}
	}
	if i := strings.Index(metric, "_"); i > 0 {
		return metric[:i]
	}
	return metric
}

// multiWordPlatforms lists platform names containing underscores.
var multiWordPlatforms = []string{"apple_music", "amazon_music"}

// VideoMetadata describes the most-viewed video found for a track on the
// video platform. Optional per track.
type VideoMetadata struct {
	// ID is the video platform's video ID.
	ID string `json:"id" yaml:"id"`

	// Title is the video title.
	Title string `json:"title" yaml:"title"`

	// ChannelName is the uploading channel.
	ChannelName string `json:"channel_name" yaml:"channel_name"`

	// Views is the total view count.
	Views float64 `json:"views" yaml:"views"`

	// Likes is the total like count.
	Likes float64 `json:"likes" yaml:"likes"`

	// Comments is the total comment count.
	Comments float64 `json:"comments" yaml:"comments"`
}

// EnrichedTrack pairs a resolved track with the metrics fetched for it.
type EnrichedTrack struct {
	Track   Track          `json:"track" yaml:"track"`
	Metrics MetricSet      `json:"metrics" yaml:"metrics"`
	Video   *VideoMetadata `json:"video,omitempty" yaml:"video,omitempty"`
}
