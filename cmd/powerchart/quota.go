package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovasilev/powerchart/internal/catalog"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show catalog API quota usage",
	RunE:  showQuota,
}

func init() {
	rootCmd.AddCommand(quotaCmd)
}

func showQuota(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cfg.Catalog.APIKey == "" {
		return fmt.Errorf("no catalog API key; place it in .secrets/songstats-api-key")
	}

	client := catalog.NewClient(cfg.Catalog, nil, zap.NewNop())
	quota, err := client.Status(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Requests used:  %d\n", quota.RequestsUsed)
	fmt.Printf("Requests limit: %d\n", quota.RequestsLimit)
	if quota.ResetDate != "" {
		fmt.Printf("Resets:         %s\n", quota.ResetDate)
	}
	return nil
}
