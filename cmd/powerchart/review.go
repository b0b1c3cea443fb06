package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ovasilev/powerchart/internal/pipeline"
	"github.com/ovasilev/powerchart/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List tracks awaiting manual review",
	Long: `Review lists the tracks the pipeline could not resolve automatically,
with the reason each one was queued. Pass --resolved to include already
handled items.`,
	RunE: listReview,
}

var reviewResolveCmd = &cobra.Command{
	Use:   "resolve <track-id> <note>",
	Short: "Mark a review item as handled",
	Args:  cobra.ExactArgs(2),
	RunE:  resolveReview,
}

func init() {
	reviewCmd.PersistentFlags().Int("year", 0, "selection year (default: config or current year)")
	reviewCmd.Flags().Bool("resolved", false, "include resolved items")
	reviewCmd.AddCommand(reviewResolveCmd)
	rootCmd.AddCommand(reviewCmd)
}

// openReviewQueue opens the review queue of the year's latest run.
func openReviewQueue(cmd *cobra.Command) (*review.Queue, error) {
	cfg := loadConfig()
	if year, _ := cmd.Flags().GetInt("year"); year != 0 {
		cfg.Pipeline.Year = year
	}
	runDir, err := pipeline.LatestRunDir(cfg.Pipeline.DataDir, cfg.Pipeline.Year)
	if err != nil {
		return nil, err
	}
	return review.Open(filepath.Join(runDir, pipeline.ReviewQueueFile))
}

func listReview(cmd *cobra.Command, args []string) error {
	queue, err := openReviewQueue(cmd)
	if err != nil {
		return err
	}

	pending := queue.Pending()
	if len(pending) == 0 {
		fmt.Println("No tracks awaiting review.")
	} else {
		fmt.Printf("%d tracks awaiting review:\n\n", len(pending))
		for _, item := range pending {
			fmt.Printf("  %s  %s - %s\n", item.ID, item.Artist, item.Title)
			fmt.Printf("      stage:  %s\n", item.Stage)
			fmt.Printf("      reason: %s\n", item.Reason)
			if item.Query != "" {
				fmt.Printf("      query:  %q\n", item.Query)
			}
		}
	}

	if showResolved, _ := cmd.Flags().GetBool("resolved"); showResolved && queue.ResolvedCount() > 0 {
		fmt.Printf("\n%d resolved:\n\n", queue.ResolvedCount())
		for _, item := range queue.Resolved() {
			fmt.Printf("  %s  %s - %s: %s\n", item.ID, item.Artist, item.Title, item.Resolution)
		}
	}
	return nil
}

func resolveReview(cmd *cobra.Command, args []string) error {
	queue, err := openReviewQueue(cmd)
	if err != nil {
		return err
	}
	if err := queue.Resolve(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Resolved %s.\n", args[0])
	return nil
}
