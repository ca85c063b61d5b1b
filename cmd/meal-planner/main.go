// Package main is the entry point for the meal-planner CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"performance-meal-planner/internal/config"
	"performance-meal-planner/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// v holds defaults, environment overrides, the config file and bound flags.
var v = config.NewViper()

// Exit codes.
const (
	exitFailure = 1
	exitHalted  = 2
	exitQAFail  = 3
)

// exitError carries a specific process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:   "meal-planner",
	Short: "Weekly performance meal plan generator",
	Long: `meal-planner turns a user profile, a weekly training schedule and
wearable-derived signals into nutrition targets, a 28-meal plan, a grocery
list and a QA-checked markdown digest.

Configuration is read from ./meal-planner.yaml or
~/.config/meal-planner/config.yaml and may be overridden with MEALPLAN_*
environment variables.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./meal-planner.yaml or ~/.config/meal-planner/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db", "", "sqlite database path")
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("pipeline.database_path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("meal-planner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "meal-planner"))
		}
	}

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "failed to read config file %s: %v\n", cfgFile, err)
		os.Exit(exitFailure)
	}
}

// loadConfig decodes and validates the merged configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(v, "")
}

// setupLogger builds the logger from cfg. The closer releases the log file.
func setupLogger(cfg *config.Config) (*logrus.Logger, io.Closer, error) {
	log, closer, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return log, closer, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitFailure)
	}
}
