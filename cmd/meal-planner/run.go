package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"performance-meal-planner/internal/config"
	"performance-meal-planner/internal/database"
	"performance-meal-planner/internal/ghost"
	"performance-meal-planner/internal/history"
	"performance-meal-planner/internal/inputs"
	"performance-meal-planner/internal/linkcheck"
	"performance-meal-planner/internal/llm"
	"performance-meal-planner/internal/mail"
	"performance-meal-planner/internal/metrics"
	"performance-meal-planner/internal/pipeline"
	"performance-meal-planner/internal/recipe"
	"performance-meal-planner/internal/shopping"
	"performance-meal-planner/internal/storage"
	"performance-meal-planner/internal/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate this week's plan, grocery list and digest",
	Long: `Run loads user_profile, weekly_context and (optionally) outcome_signals
from the input directory and executes every stage. Artifacts are written to
<output>/<week_start>/. The digest is delivered only when the QA gate passes.

Exit status is 2 when a stage gate halts the run and 3 when QA fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			cfg.Delivery.Channel = config.ChannelNone
		}
		printDigest, _ := cmd.Flags().GetBool("print")
		return runWeek(cmd.Context(), cfg, printDigest)
	},
}

func init() {
	runCmd.Flags().String("input", "", "directory holding the input records")
	runCmd.Flags().String("output", "", "artifact output directory")
	runCmd.Flags().String("channel", "", "delivery channel (none, email, telegram, ghost)")
	runCmd.Flags().Bool("verify-links", false, "fetch every recipe link and flag the ones that do not resolve")
	runCmd.Flags().Bool("dry-run", false, "run every stage but skip delivery")
	runCmd.Flags().Bool("print", false, "render the digest in the terminal")

	_ = v.BindPFlag("pipeline.input_dir", runCmd.Flags().Lookup("input"))
	_ = v.BindPFlag("pipeline.output_dir", runCmd.Flags().Lookup("output"))
	_ = v.BindPFlag("delivery.channel", runCmd.Flags().Lookup("channel"))
	_ = v.BindPFlag("pipeline.verify_links", runCmd.Flags().Lookup("verify-links"))

	rootCmd.AddCommand(runCmd)
}

func runWeek(ctx context.Context, cfg *config.Config, printDigest bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, closer, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	db, err := database.NewDB(cfg.Pipeline.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	gen, err := llm.NewTextGenerator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize recipe generator: %w", err)
	}
	if c, ok := gen.(llm.Closer); ok {
		defer c.Close()
	}
	if gen == nil {
		log.Warn("no llm provider configured: every meal will use a fallback recipe")
	}

	filler, err := recipe.NewFiller(gen, recipe.Options{
		BatchSize: cfg.LLM.BatchSize,
		Timeout:   cfg.LLM.Timeout,
		MaxResend: cfg.LLM.MaxResend,
	}, log)
	if err != nil {
		return err
	}

	artifacts, err := storage.NewArtifactStore(cfg.Pipeline.OutputDir)
	if err != nil {
		return err
	}
	sender, err := newSender(cfg.Delivery, log)
	if err != nil {
		return err
	}

	historyStore := history.NewStore(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)
	deps := pipeline.Deps{
		Filler:    filler,
		Links:     linkcheck.NewChecker(cfg.Pipeline.LinkTimeout),
		Catalog:   shopping.DefaultCatalog(),
		History:   historyStore,
		Analysis:  history.NewGate(historyStore, nil, cfg.Pipeline.HistoryThreshold),
		Metrics:   metricsStore,
		Artifacts: artifacts,
		Sender:    sender,
	}
	ctrl, err := pipeline.New(cfg.Pipeline, deps, log)
	if err != nil {
		return err
	}

	bundle, err := inputs.LoadDir(cfg.Pipeline.InputDir)
	if err != nil {
		return &exitError{code: exitHalted, err: fmt.Errorf("failed to load inputs: %w", err)}
	}

	res, err := ctrl.Run(ctx, bundle)
	if err != nil {
		var gate *pipeline.GateError
		if errors.As(err, &gate) {
			fmt.Fprintf(os.Stderr, "Run halted at %s gate: %s\n", gate.Gate, gate.Reason)
			return &exitError{code: exitHalted, err: err}
		}
		return err
	}

	if cfg.Metrics.RetentionDays > 0 {
		if n, err := metricsStore.Cleanup(ctx, cfg.Metrics.RetentionDays); err != nil {
			log.WithError(err).Warn("failed to clean up old metrics")
		} else if n > 0 {
			log.WithField("removed", n).Debug("old metric records removed")
		}
	}

	if printDigest {
		if err := renderMarkdown(res.Digest); err != nil {
			log.WithError(err).Warn("failed to render digest, printing raw markdown")
			fmt.Println(res.Digest)
		}
	}
	printSummary(res)

	if !res.Report.Passed() {
		return &exitError{code: exitQAFail, err: fmt.Errorf("QA gate failed: %v", res.Report.BlockingFailures())}
	}
	return nil
}

// newSender returns nil when delivery is disabled.
func newSender(cfg config.DeliveryConfig, log logrus.FieldLogger) (pipeline.Sender, error) {
	switch cfg.Channel {
	case config.ChannelEmail:
		return mail.NewSender(cfg.Email, log), nil
	case config.ChannelTelegram:
		bot, err := telegram.NewBot(cfg.Telegram, log)
		if err != nil {
			return nil, err
		}
		return bot, nil
	case config.ChannelGhost:
		return ghost.NewClient(cfg.Ghost, log), nil
	default:
		return nil, nil
	}
}

func renderMarkdown(md string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func printSummary(res *pipeline.Result) {
	fmt.Printf("\nRun %s for week %s\n", res.RunID, res.WeekStart)
	fmt.Printf("Subject:   %s\n", res.Document.Subject)
	fmt.Printf("QA:        %s\n", res.Report.Overall)
	for _, line := range res.Report.SummaryLines() {
		fmt.Printf("           %s\n", line)
	}
	switch {
	case !res.Shipped:
		fmt.Println("Delivery:  not shipped (QA failed)")
	case res.Delivered:
		fmt.Println("Delivery:  sent")
	default:
		fmt.Println("Delivery:  skipped or failed; digest kept on disk")
	}
	fmt.Println("Artifacts:")
	for _, p := range res.Artifacts {
		fmt.Printf("  - %s\n", p)
	}
}
