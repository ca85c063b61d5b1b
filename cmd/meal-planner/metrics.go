package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"performance-meal-planner/internal/database"
	"performance-meal-planner/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show daily token usage and latency of recipe generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")

		db, err := database.NewDB(cfg.Pipeline.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		usage, err := metrics.NewStore(db.SQL).GetDailyUsage(cmd.Context(), days)
		if err != nil {
			return err
		}
		if len(usage) == 0 {
			fmt.Printf("No metrics recorded in the last %d days.\n", days)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tCALLS\tPROMPT\tCOMPLETION\tAVG LATENCY")
		for _, u := range usage {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.0f ms\n", u.Date, u.TotalExecution, u.TotalPrompt, u.TotalCompletion, u.AvgLatencyMS)
		}
		return w.Flush()
	},
}

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old metric records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = cfg.Metrics.RetentionDays
		}

		db, err := database.NewDB(cfg.Pipeline.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		affected, err := metrics.NewStore(db.SQL).Cleanup(cmd.Context(), days)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
		return nil
	},
}

func init() {
	metricsCmd.Flags().Int("days", 7, "number of days to report")
	metricsCleanupCmd.Flags().Int("days", 0, "keep records for the last N days (default: metrics.retention_days)")
	rootCmd.AddCommand(metricsCmd, metricsCleanupCmd)
}
