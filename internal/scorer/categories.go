// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scorer

import (
	"fmt"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"
)

// Importance multiplier levels for category weighting.
const (
	WeightNegligible = 1.0
	WeightLow        = 2.0
	WeightHigh       = 4.0
)

// Config maps metric names into categories and assigns each category an
// importance multiplier.
type Config struct {
	// Categories maps a category label to its member metric names.
	Categories map[string][]string `yaml:"categories"`

	// Weights maps a category label to its importance multiplier.
	// Categories missing from the map default to WeightNegligible.
	Weights map[string]float64 `yaml:"weights"`
}

// Weight returns the importance multiplier for category, defaulting to
// WeightNegligible for unknown categories.
func (c Config) Weight(category string) float64 {
	if w, ok := c.Weights[category]; ok {
		return w
	}
	return WeightNegligible
}

// CategoryNames returns the category labels in sorted order, so score
// breakdowns and exports are deterministic.
func (c Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultConfig returns the built-in category layout across the ten tracked
// platforms.
func DefaultConfig() Config {
	return Config{
		Categories: map[string][]string{
			"charts": {
				"spotify_charts_total",
				"apple_music_charts_total",
				"amazon_music_charts_total",
				"beatport_charts_total",
				"deezer_charts_total",
			},
			"engagement": {
				"tiktok_videos_total",
				"soundcloud_likes_total",
				"youtube_likes_total",
			},
			"playlists": {
				"spotify_playlists_total",
				"apple_music_playlists_total",
				"deezer_playlists_total",
				"tidal_playlists_total",
			},
			"popularity": {
				"spotify_popularity_peak",
				"deezer_popularity_peak",
				"tidal_popularity_peak",
			},
			"professional_support": {
				"tracklists_unique_support",
				"tracklists_total_support",
			},
			"reach": {
				"spotify_playlist_reach_total",
				"deezer_playlist_reach_total",
				"youtube_subscribers_total",
			},
			"shorts": {
				"youtube_shorts_total",
				"tiktok_views_total",
			},
			"streams": {
				"spotify_streams_total",
				"soundcloud_streams_total",
				"youtube_video_views_total",
			},
		},
		Weights: map[string]float64{
			"charts":               WeightNegligible,
			"engagement":           WeightNegligible,
			"shorts":               WeightNegligible,
			"playlists":            WeightLow,
			"professional_support": WeightLow,
			"reach":                WeightLow,
			"popularity":           WeightHigh,
			"streams":              WeightHigh,
		},
	}
}

// LoadConfig reads a category configuration from a YAML file. An empty path
// returns DefaultConfig.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading category config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing category config %s: %w", path, err)
	}
	if len(cfg.Categories) == 0 {
		return Config{}, fmt.Errorf("category config %s defines no categories", path)
	}
	return cfg, nil
}
