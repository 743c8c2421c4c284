package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iyulab/phish-triage/internal/collector"
	"github.com/iyulab/phish-triage/internal/orchestrator"
	"github.com/iyulab/phish-triage/internal/reporter"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>...",
		Short: "Classify URLs and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			orch := newOrchestrator(cmd, cfg, orchestrator.Options{})
			results, err := orch.Check(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprint(out, reporter.FormatResult(r.Detection))
				for _, m := range r.RuleMatches {
					fmt.Fprintf(out, "Rule match:     [%s] %s\n", strings.ToUpper(m.Level), m.RuleTitle)
				}
			}
			return nil
		},
	}
}

func newPrepareCmd() *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Normalize a labeled URL dataset (URL,Label good/bad) to url,label_text,label",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "[*] Preparing %s...\n", in)
			stats, err := collector.PrepareDataset(in, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rows: %d | good: %d | bad: %d | dropped: %d\n",
				stats.Rows, stats.Good, stats.Bad, stats.Dropped)
			for label, n := range stats.Unmapped {
				fmt.Fprintf(cmd.ErrOrStderr(), "  unmapped label %q: %d\n", label, n)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "raw dataset CSV")
	cmd.Flags().StringVar(&out, "out", "data/dataset_clean.csv", "prepared dataset CSV")
	cmd.MarkFlagRequired("in")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Write the feature matrix of a prepared dataset for model training",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "[*] Extracting features from %s...\n", in)
			n, err := collector.ExtractDataset(in, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rows: %d\nSaved: %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "data/dataset_clean.csv", "prepared dataset CSV")
	cmd.Flags().StringVar(&out, "out", "data/features.csv", "feature CSV")
	return cmd
}

func newAlertsCmd() *cobra.Command {
	var (
		input      string
		priorities string
		labels     string
		narrate    bool
		serve      bool
	)

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Review a prioritized alert CSV",
		Long: `Loads an alert CSV once and prints the queue ordered by priority, then
probability. When the priority column is missing, priorities are derived
from the probability column with the configured thresholds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			orch := newOrchestrator(cmd, cfg, orchestrator.Options{})
			_, err = orch.RunAlerts(cmd.Context(), orchestrator.AlertOptions{
				Input:      input,
				Priorities: splitList(priorities),
				Labels:     splitList(labels),
				Narrate:    narrate,
				Serve:      serve,
			})
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "alert CSV (default: alerts.path)")
	cmd.Flags().StringVar(&priorities, "priority", "", "comma-separated levels to keep (HIGH,MEDIUM,LOW)")
	cmd.Flags().StringVar(&labels, "label", "", "comma-separated labels to keep")
	cmd.Flags().BoolVar(&narrate, "narrate", false, "ask the configured LLM for a narrative")
	cmd.Flags().BoolVar(&serve, "serve", false, "serve the queue on 127.0.0.1")
	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		report string
		port   int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a report, the alert API and the classify API on 127.0.0.1",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			orch := newOrchestrator(cmd, cfg, orchestrator.Options{})
			return orch.Serve(cmd.Context(), report)
		},
	}
	cmd.Flags().StringVar(&report, "report", "", "report.html to serve at /")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}
