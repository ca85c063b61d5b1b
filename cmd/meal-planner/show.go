package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"performance-meal-planner/internal/qa"
	"performance-meal-planner/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <week_start>",
	Short: "List a week's artifacts and its QA verdict",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		week := args[0]
		printDigest, _ := cmd.Flags().GetBool("print")

		store, err := storage.NewArtifactStore(cfg.Pipeline.OutputDir)
		if err != nil {
			return err
		}
		names, err := store.List(week)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return fmt.Errorf("no artifacts for week %s under %s", week, cfg.Pipeline.OutputDir)
		}

		fmt.Printf("Week %s\n", week)
		for _, n := range names {
			fmt.Printf("  - %s\n", n)
		}

		if store.Exists(week, storage.QAReportJSONFile) {
			var report qa.Report
			if err := store.LoadJSON(week, storage.QAReportJSONFile, &report); err != nil {
				return err
			}
			fmt.Println("QA:")
			for _, line := range report.SummaryLines() {
				fmt.Printf("  %s\n", line)
			}
		} else {
			fmt.Println("QA: no report (run halted before the QA gate)")
		}

		if !printDigest {
			return nil
		}
		if !store.Exists(week, storage.DigestFile) {
			return fmt.Errorf("no digest for week %s", week)
		}
		digest, err := store.ReadString(week, storage.DigestFile)
		if err != nil {
			return err
		}
		if err := renderMarkdown(digest); err != nil {
			fmt.Println(digest)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("print", false, "render the stored digest in the terminal")
	rootCmd.AddCommand(showCmd)
}
