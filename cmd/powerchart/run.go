package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ovasilev/powerchart/internal/cache"
	"github.com/ovasilev/powerchart/internal/catalog"
	"github.com/ovasilev/powerchart/internal/library"
	"github.com/ovasilev/powerchart/internal/normalize"
	"github.com/ovasilev/powerchart/internal/observability"
	"github.com/ovasilev/powerchart/internal/pipeline"
	"github.com/ovasilev/powerchart/internal/scorer"
	"github.com/ovasilev/powerchart/internal/video"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ranking pipeline for a year",
	Long: `Run executes the pipeline stages (selection, enrichment, ranking) for a
year's playlist. By default it resumes the year's most recent run, skipping
stages and tracks that already completed. Use --new-run to start over.

Tracks the catalog cannot resolve are written to the run's review queue;
inspect and resolve them with "powerchart review".`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().Int("year", 0, "selection year to rank (default: config or current year)")
	runCmd.Flags().StringSlice("stages", nil, "stages to run, in order (default: all; named stages rerun even if completed)")
	runCmd.Flags().Bool("new-run", false, "start a fresh run instead of resuming the latest")
	runCmd.Flags().String("library", "", "library export file (YAML)")
	runCmd.Flags().String("playlist", "", "playlist name (default: \"<year> Selection\")")
	runCmd.Flags().String("strategy", "", "normalization strategy: minmax, zscore, or robust")
	runCmd.Flags().String("categories", "", "category weight configuration file (YAML)")
	runCmd.Flags().Bool("skip-video", false, "skip video platform enrichment")
	runCmd.Flags().Bool("verbose", false, "log per-track progress")
	runCmd.Flags().Bool("no-progress", false, "disable the terminal progress line")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	if year, _ := cmd.Flags().GetInt("year"); year != 0 {
		cfg.Pipeline.Year = year
	}
	if path, _ := cmd.Flags().GetString("library"); path != "" {
		cfg.Library.Path = path
	}
	if playlist, _ := cmd.Flags().GetString("playlist"); playlist != "" {
		cfg.Library.Playlist = playlist
	}
	if strategy, _ := cmd.Flags().GetString("strategy"); strategy != "" {
		cfg.Ranking.Strategy = strategy
	}
	if categories, _ := cmd.Flags().GetString("categories"); categories != "" {
		cfg.Ranking.CategoriesFile = categories
	}
	if skip, _ := cmd.Flags().GetBool("skip-video"); skip {
		cfg.Pipeline.IncludeVideo = false
	}
	stages, _ := cmd.Flags().GetStringSlice("stages")
	for i, s := range stages {
		stages[i] = strings.ToLower(strings.TrimSpace(s))
	}
	newRun, _ := cmd.Flags().GetBool("new-run")
	verbose, _ := cmd.Flags().GetBool("verbose")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	if cfg.Library.Path == "" {
		return fmt.Errorf("no library export configured; set library.path or pass --library")
	}
	if cfg.Catalog.APIKey == "" {
		return fmt.Errorf("no catalog API key; place it in .secrets/songstats-api-key")
	}

	if cfg.Logger.File == "" {
		cfg.Logger.File = filepath.Join(cfg.Pipeline.DataDir, "logs", "powerchart.log")
	}
	logger := observability.New(cfg.Logger)
	defer logger.Sync() //nolint:errcheck

	strategy, err := normalize.ForName(cfg.Ranking.Strategy)
	if err != nil {
		return err
	}
	scorerCfg := scorer.DefaultConfig()
	if cfg.Ranking.CategoriesFile != "" {
		scorerCfg, err = scorer.LoadConfig(cfg.Ranking.CategoriesFile)
		if err != nil {
			return err
		}
	}

	respCache, err := cache.Open(filepath.Join(cfg.Pipeline.DataDir, "cache"))
	if err != nil {
		return err
	}
	defer respCache.Close()

	orch, err := pipeline.NewOrchestrator(pipeline.Options{
		DataDir:  cfg.Pipeline.DataDir,
		Year:     cfg.Pipeline.Year,
		NewRun:   newRun,
		Stages:   stages,
		Verbose:  verbose,
		Progress: !noProgress,
	}, logger)
	if err != nil {
		return err
	}
	defer orch.Close()

	if orch.Resumed() {
		fmt.Fprintf(os.Stderr, "Resuming run %s\n", orch.RunDir())
	} else {
		fmt.Fprintf(os.Stderr, "Starting run %s\n", orch.RunDir())
	}

	catalogClient := catalog.NewClient(cfg.Catalog, respCache, logger)

	var videoClient pipeline.VideoFetcher
	if cfg.Pipeline.IncludeVideo && cfg.Video.APIKey != "" {
		videoClient = video.NewClient(cfg.Video, logger)
	}

	selector := library.Selector{
		Playlist: cfg.Library.Playlist,
		Year:     cfg.Pipeline.Year,
	}
	if selector.Playlist == "" {
		selector.Playlist = fmt.Sprintf("%d Selection", cfg.Pipeline.Year)
	}

	all := []pipeline.Stage{
		pipeline.NewSelectionStage(
			library.NewReader(cfg.Library.Path),
			catalogClient,
			selector,
			orch.RunDir(),
			orch.Store(),
			orch.Queue(),
			orch.Publisher(),
			logger,
		),
		pipeline.NewEnrichmentStage(
			catalogClient,
			videoClient,
			cfg.Pipeline.Year,
			orch.RunDir(),
			orch.Store(),
			orch.Publisher(),
			logger,
		),
		pipeline.NewRankingStage(
			scorer.New(scorerCfg, strategy),
			cfg.Pipeline.Year,
			orch.RunDir(),
			orch.Store(),
			orch.Publisher(),
			logger,
		),
	}
	run, err := selectStages(all, stages)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := orch.Run(ctx, run); err != nil {
		return err
	}

	fmt.Printf("Run complete: %s\n", orch.Metrics().Summary())
	if pending := orch.Queue().PendingCount(); pending > 0 {
		fmt.Printf("%d tracks need manual review; see \"powerchart review --year %d\"\n",
			pending, cfg.Pipeline.Year)
	}
	fmt.Printf("Artifacts in %s\n", orch.RunDir())
	return nil
}

// selectStages filters the full stage list down to the requested names,
// preserving pipeline order regardless of how they were given.
func selectStages(all []pipeline.Stage, names []string) ([]pipeline.Stage, error) {
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var selected []pipeline.Stage
	for _, s := range all {
		if want[s.Name()] {
			selected = append(selected, s)
			delete(want, s.Name())
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for n := range want {
			unknown = append(unknown, n)
		}
		return nil, fmt.Errorf("unknown stages %v (valid: %s)",
			unknown, strings.Join(pipeline.StageOrder, ", "))
	}
	return selected, nil
}
