package types

import "time"

// HTTPConfig holds shared HTTP settings used by clients that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "powerchart/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CatalogConfig holds settings for the catalog (track search/stats) client.
type CatalogConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the catalog API base URL.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates requests; sent in the "apikey" header.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// RateLimit is the maximum request rate in requests per second.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// MaxRetries is the retry budget for transient failures (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// VideoConfig holds settings for the video platform client.
type VideoConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the video API base URL.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is sent as the "key" query parameter.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// RateLimit is the maximum request rate in requests per second.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`
}

// LibraryConfig holds settings for the local library reader.
type LibraryConfig struct {
	// Path is the library export file (YAML).
	Path string `json:"path" yaml:"path"`

	// Playlist is the playlist name to select. When empty the selection
	// stage derives "<year> Selection".
	Playlist string `json:"playlist,omitempty" yaml:"playlist,omitempty"`
}

// RankingConfig holds settings for the ranking stage.
type RankingConfig struct {
	// Strategy selects the normalization strategy: minmax, zscore, or robust.
	Strategy string `json:"strategy" yaml:"strategy"`

	// CategoriesFile optionally overrides the built-in category and
	// weight configuration (YAML).
	CategoriesFile string `json:"categories_file,omitempty" yaml:"categories_file,omitempty"`
}

// PipelineConfig holds run-level settings for the orchestrator.
type PipelineConfig struct {
	// DataDir is the base directory containing runs/, logs/, and cache/.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Year is the selection year being ranked.
	Year int `json:"year" yaml:"year"`

	// IncludeVideo controls whether the optional video platform
	// enrichment runs.
	IncludeVideo bool `json:"include_video" yaml:"include_video"`
}

// LoggerConfig holds settings for the zap logger.
type LoggerConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// File is the rotating JSON log file path; empty disables file logging.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// MaxSizeMB caps a log file's size before rotation.
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups caps the number of rotated files kept.
	MaxBackups int `json:"max_backups" yaml:"max_backups"`
}

// Config aggregates all configuration sections, mirroring powerchart.yaml.
type Config struct {
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Library  LibraryConfig  `json:"library" yaml:"library"`
	Catalog  CatalogConfig  `json:"catalog" yaml:"catalog"`
	Video    VideoConfig    `json:"video" yaml:"video"`
	Ranking  RankingConfig  `json:"ranking" yaml:"ranking"`
	Logger   LoggerConfig   `json:"logger" yaml:"logger"`
}
