// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the powerchart CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ovasilev/powerchart/internal/secrets"
	"github.com/ovasilev/powerchart/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultUserAgent = "powerchart/0.1"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the powerchart CLI.
var rootCmd = &cobra.Command{
	Use:   "powerchart",
	Short: "Yearly music power rankings from multi-platform statistics",
	Long: `powerchart builds a yearly power ranking for a playlist of tracks. It
resolves each track against the Songstats catalog, collects streaming and
chart statistics across platforms, and scores every track with a
normalization strategy and availability-weighted category averages.

The pipeline runs in three resumable stages: selection, enrichment, and
ranking. Interrupted runs pick up where they left off; tracks the catalog
cannot resolve land in a manual review queue.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./powerchart.yaml or ~/.config/powerchart/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "base data directory (default: ./data)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("powerchart")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "powerchart"))
		}
	}

	viper.SetEnvPrefix("POWERCHART")
	viper.AutomaticEnv()

	viper.SetDefault("pipeline.data_dir", "data")
	viper.SetDefault("pipeline.year", time.Now().Year())
	viper.SetDefault("catalog.rate_limit", 2.0)
	viper.SetDefault("catalog.max_retries", 5)
	viper.SetDefault("video.rate_limit", 1.0)
	viper.SetDefault("ranking.strategy", "minmax")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.max_size_mb", 10)
	viper.SetDefault("logger.max_backups", 3)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the typed configuration from viper, flags, and
// secrets. Flag overrides are applied by the callers on top of this.
func loadConfig() types.Config {
	cfg := types.Config{
		Pipeline: types.PipelineConfig{
			DataDir:      viper.GetString("pipeline.data_dir"),
			Year:         viper.GetInt("pipeline.year"),
			IncludeVideo: viper.GetBool("pipeline.include_video"),
		},
		Library: types.LibraryConfig{
			Path:     viper.GetString("library.path"),
			Playlist: viper.GetString("library.playlist"),
		},
		Catalog: types.CatalogConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("catalog.timeout"),
				UserAgent: defaultUserAgent,
			},
			BaseURL:    viper.GetString("catalog.base_url"),
			APIKey:     secretDefault("songstats-api-key", viper.GetString("catalog.api_key")),
			RateLimit:  viper.GetFloat64("catalog.rate_limit"),
			MaxRetries: viper.GetInt("catalog.max_retries"),
		},
		Video: types.VideoConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("video.timeout"),
				UserAgent: defaultUserAgent,
			},
			BaseURL:   viper.GetString("video.base_url"),
			APIKey:    secretDefault("youtube-api-key", viper.GetString("video.api_key")),
			RateLimit: viper.GetFloat64("video.rate_limit"),
		},
		Ranking: types.RankingConfig{
			Strategy:       viper.GetString("ranking.strategy"),
			CategoriesFile: viper.GetString("ranking.categories_file"),
		},
		Logger: types.LoggerConfig{
			Level:      viper.GetString("logger.level"),
			File:       viper.GetString("logger.file"),
			MaxSizeMB:  viper.GetInt("logger.max_size_mb"),
			MaxBackups: viper.GetInt("logger.max_backups"),
		},
	}

	if dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir"); dataDir != "" {
		cfg.Pipeline.DataDir = dataDir
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
