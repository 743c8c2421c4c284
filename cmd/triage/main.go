// Package main is the CLI entry point for phish-triage.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iyulab/phish-triage/internal/config"
	"github.com/iyulab/phish-triage/internal/logger"
	"github.com/iyulab/phish-triage/internal/metrics"
	"github.com/iyulab/phish-triage/internal/orchestrator"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "triage",
		Short: "Phishing URL classifier and alert triage tool",
		Long: `phish-triage scores URLs with a pre-trained tree-ensemble model,
buckets them into HIGH / MEDIUM / LOW priorities and writes CSV, text
and HTML reports. Prioritized alert CSVs can be reviewed with the same
thresholds, and an optional LLM narrates the results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "config.toml", "path to config file (defaults apply when missing)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file with TRIAGE_* overrides")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	rootCmd.AddCommand(
		newScanCmd(),
		newCheckCmd(),
		newPrepareCmd(),
		newExtractCmd(),
		newAlertsCmd(),
		newServeCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the dotenv file and config, then initializes the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Log.File, cfg.Log.Console); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, nil
}

// newOrchestrator builds an orchestrator with metrics attached.
func newOrchestrator(cmd *cobra.Command, cfg *config.Config, opts orchestrator.Options) *orchestrator.Orchestrator {
	opts.Verbose, _ = cmd.Flags().GetBool("verbose")
	opts.Version = fmt.Sprintf("%s (%s)", version, commit)
	orch := orchestrator.New(cfg, opts)
	orch.SetMetrics(metrics.New())
	return orch
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
