package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"performance-meal-planner/internal/database"
	"performance-meal-planner/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the weekly summary rows recorded so far",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := database.NewDB(cfg.Pipeline.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		store := history.NewStore(db.SQL)
		total, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		rows, err := store.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}

		threshold := cfg.Pipeline.HistoryThreshold
		fmt.Printf("%d week(s) recorded; analysis activates at %d.\n\n", total, threshold)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WEEK\tTIER\tKCAL\tPROTEIN\tCARBS\tFAT\tHIGH/TRAIN/REST\tSLEEP\tNOTES")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%.0f\t%.0f\t%d/%d/%d\t%s\t%s\n",
				r.WeekStart, r.WeekTier, r.AvgKcal, r.AvgProteinG, r.AvgCarbsG, r.AvgFatG,
				r.HighDays, r.TrainingDays, r.RestDays, optional(r.AvgSleepHr), r.Notes)
		}
		return w.Flush()
	},
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func init() {
	historyCmd.Flags().Int("limit", 12, "number of most recent weeks to show")
	rootCmd.AddCommand(historyCmd)
}
