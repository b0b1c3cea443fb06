package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ovasilev/powerchart/internal/export"
	"github.com/ovasilev/powerchart/internal/pipeline"
	"github.com/ovasilev/powerchart/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-export the rankings of a completed run",
	Long: `Export reads rankings.json from the year's latest run and writes it to
the requested location in JSON or CSV form. Use it to regenerate output
files without re-running the pipeline.`,
	RunE: exportRankings,
}

func init() {
	exportCmd.Flags().Int("year", 0, "selection year (default: config or current year)")
	exportCmd.Flags().String("out", "", "output file; extension selects the format (.json or .csv)")
	exportCmd.Flags().Int("top", 0, "export only the top N rankings")

	rootCmd.AddCommand(exportCmd)
}

func exportRankings(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if year, _ := cmd.Flags().GetInt("year"); year != 0 {
		cfg.Pipeline.Year = year
	}
	out, _ := cmd.Flags().GetString("out")
	top, _ := cmd.Flags().GetInt("top")
	if out == "" {
		return fmt.Errorf("--out is required")
	}

	runDir, err := pipeline.LatestRunDir(cfg.Pipeline.DataDir, cfg.Pipeline.Year)
	if err != nil {
		return err
	}
	source := filepath.Join(runDir, "rankings.json")
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("reading %s (has the ranking stage run?): %w", source, err)
	}
	var results types.RankingResults
	if err := json.Unmarshal(data, &results); err != nil {
		return fmt.Errorf("parsing %s: %w", source, err)
	}
	if top > 0 && top < len(results.Rankings) {
		results.Rankings = results.Rankings[:top]
	}

	switch filepath.Ext(out) {
	case ".json":
		err = export.WriteRankingsJSON(out, results)
	case ".csv":
		err = export.WriteRankingsCSV(out, results)
	default:
		return fmt.Errorf("unsupported output format %q (want .json or .csv)", filepath.Ext(out))
	}
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d rankings to %s\n", len(results.Rankings), out)
	return nil
}
