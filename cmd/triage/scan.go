package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iyulab/phish-triage/internal/orchestrator"
)

func newScanCmd() *cobra.Command {
	var (
		input     string
		outputDir string
		serve     bool
		noNarrate bool
		bundle    bool
		port      int
	)

	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Score a URL list and write the triage report",
		Long: `Scores every URL from --input (plain text, one per line, or CSV with a
URL column) plus any URLs given as arguments, then writes detections.csv,
report.txt, report.html, summary.yaml and a hash manifest into a
timestamped directory under output.dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" && len(args) == 0 {
				return fmt.Errorf("nothing to scan: pass --input or URLs")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bundle") {
				cfg.Output.Bundle = bundle
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			orch := newOrchestrator(cmd, cfg, orchestrator.Options{
				Input:     input,
				URLs:      args,
				OutputDir: outputDir,
				Serve:     serve,
				NoNarrate: noNarrate,
			})
			_, err = orch.Run(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "URL list (.txt or .csv)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "run directory (default: timestamped under output.dir)")
	cmd.Flags().BoolVar(&serve, "serve", false, "serve the report on 127.0.0.1 after the scan")
	cmd.Flags().BoolVar(&noNarrate, "no-narrate", false, "skip LLM narration even when llm.enabled is set")
	cmd.Flags().BoolVar(&bundle, "bundle", false, "zip the run directory (overrides output.bundle)")
	cmd.Flags().IntVar(&port, "port", 0, "port for --serve (overrides server.port)")
	return cmd
}
