// Package orchestrator coordinates the Read → Score → Prioritize → Report pipeline.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iyulab/phish-triage/internal/browser"
	"github.com/iyulab/phish-triage/internal/classifier"
	"github.com/iyulab/phish-triage/internal/collector"
	"github.com/iyulab/phish-triage/internal/config"
	"github.com/iyulab/phish-triage/internal/logger"
	"github.com/iyulab/phish-triage/internal/metrics"
	"github.com/iyulab/phish-triage/internal/narrator"
	"github.com/iyulab/phish-triage/internal/priority"
	"github.com/iyulab/phish-triage/internal/reporter"
	"github.com/iyulab/phish-triage/internal/sigma"
	"github.com/iyulab/phish-triage/internal/triage"
)

// ErrNoInput is returned when a scan has no URLs to score.
var ErrNoInput = errors.New("no URLs to scan")

// Options holds CLI flags for the orchestrator.
type Options struct {
	Input     string   // URL list: plain text or CSV
	URLs      []string // URLs given on the command line, scored after Input
	OutputDir string   // overrides the timestamped run directory
	Serve     bool
	NoNarrate bool
	Verbose   bool
	Version   string
}

// Result describes a completed scan run.
type Result struct {
	RunID      string
	OutputDir  string
	ReportPath string
	BundlePath string
	Summary    triage.Summary
	Detections []triage.Detection // queue order
	Matches    []sigma.SigmaMatch
	Narrative  string
	Narrated   bool
}

// Orchestrator runs the scan pipeline and the alert queue view.
type Orchestrator struct {
	cfg        *config.Config
	opts       Options
	model      *classifier.Model   // optional: injected for testing
	summarizer narrator.Summarizer // optional: injected for testing
	metrics    *metrics.Metrics
	stdout     io.Writer
	stderr     io.Writer
}

// New creates an Orchestrator with a validated config.
func New(cfg *config.Config, opts Options) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		opts:   opts,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// SetModel overrides the classifier loaded from model.path.
func (o *Orchestrator) SetModel(m *classifier.Model) {
	o.model = m
}

// SetSummarizer overrides the narrator built from the [llm] section.
func (o *Orchestrator) SetSummarizer(s narrator.Summarizer) {
	o.summarizer = s
}

// SetMetrics attaches a metrics registry. Nil disables metrics.
func (o *Orchestrator) SetMetrics(m *metrics.Metrics) {
	o.metrics = m
}

// SetOutput redirects the final summary (stdout) and progress lines (stderr).
func (o *Orchestrator) SetOutput(stdout, stderr io.Writer) {
	o.stdout = stdout
	o.stderr = stderr
}

// Run executes the full scan pipeline. With Options.Serve it blocks serving
// the report until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()

	urls, err := o.readURLs()
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, ErrNoInput
	}

	model, err := o.loadModel()
	if err != nil {
		return nil, err
	}

	outputDir := o.opts.OutputDir
	if outputDir == "" {
		outputDir = collector.GenerateOutputDir(o.cfg.Output.Dir)
	}
	if o.opts.Verbose {
		fmt.Fprintf(o.stderr, "[orchestrator] run %s, output: %s\n", runID, outputDir)
	}
	writer, err := collector.NewWriter(outputDir)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}

	// --- Stage 1: Score ---
	fmt.Fprintf(o.stderr, "[*] Scoring %d URL(s) with %s %s...\n", len(urls), model.Name, model.Version)
	scoreStart := time.Now()
	results, err := classifier.NewScorer(model, o.cfg.Model.Workers).ScoreAll(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	scoringDuration := time.Since(scoreStart)
	o.metrics.ObserveScoring(scoringDuration)
	fmt.Fprintf(o.stderr, "[*] Scoring complete (%s)\n", scoringDuration.Round(time.Millisecond))
	logger.Infof("run %s: scored %d URLs in %s", runID, len(urls), scoringDuration)

	// --- Stage 2: Prioritize ---
	detections, err := triage.Prioritize(results, o.cfg.Priority)
	if err != nil {
		return nil, fmt.Errorf("prioritize: %w", err)
	}
	o.metrics.ObserveDetections(detections)
	queue := triage.SortQueue(detections)
	summary := triage.Summarize(detections)

	// --- Stage 2.5: Sigma Rules Matching ---
	var matches []sigma.SigmaMatch
	engine, sigmaErr := sigma.NewDefault()
	if sigmaErr != nil {
		fmt.Fprintf(o.stderr, "[orchestrator] warning: sigma engine init: %v\n", sigmaErr)
	} else {
		matches = engine.MatchAll(ctx, queue)
		o.metrics.ObserveRuleMatches(matches)
		if len(matches) > 0 {
			fmt.Fprintf(o.stderr, "[*] Sigma: %d rule match(es) detected\n", len(matches))
		}
	}

	// --- Stage 3: Report ---
	fmt.Fprintf(o.stderr, "[*] Writing results...\n")
	rows := make([][]string, len(detections))
	for i, d := range detections {
		rows[i] = d.CSVRecord()
	}
	if err := writer.WriteCSV("detections.csv", triage.CSVHeader(), rows); err != nil {
		return nil, fmt.Errorf("write detections: %w", err)
	}

	reportData := reporter.ReportData{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Version:     o.opts.Version,
		Input:       o.inputLabel(),
		Model: reporter.ModelInfo{
			Name:    model.Name,
			Version: model.Version,
			Trees:   len(model.Trees),
			Path:    o.modelPath(),
		},
		Thresholds:      o.cfg.Priority,
		Summary:         summary,
		Detections:      queue,
		SigmaMatches:    matches,
		ScoringDuration: scoringDuration.String(),
	}

	text := reporter.RenderText(reportData)
	if err := writer.WriteFile("report.txt", []byte(text)); err != nil {
		return nil, fmt.Errorf("write text report: %w", err)
	}

	// --- Stage 4: Narrate (optional, never fatal) ---
	narrative, narrated := o.narrate(ctx, narrator.KindScan, text, o.cfg.LLM.Enabled)
	if narrative != "" {
		reportData.Narrative = narrative
		if err := writer.WriteFile("narration.txt", []byte(narrative+"\n")); err != nil {
			fmt.Fprintf(o.stderr, "[orchestrator] warning: narration: %v\n", err)
		}
	}

	summaryYAML, err := reporter.MarshalSummary(reporter.NewSummary(reportData, narrated))
	if err != nil {
		fmt.Fprintf(o.stderr, "[orchestrator] warning: summary: %v\n", err)
	} else if err := writer.WriteFile("summary.yaml", summaryYAML); err != nil {
		fmt.Fprintf(o.stderr, "[orchestrator] warning: summary: %v\n", err)
	}

	meta := collector.RunMeta{
		RunID:       runID,
		Input:       reportData.Input,
		Model:       model.Name + " " + model.Version,
		StartedAt:   startTime.UTC(),
		CompletedAt: time.Now().UTC(),
		Duration:    time.Since(startTime).String(),
		Total:       summary.Total,
		Phishing:    summary.Phishing,
		Narrated:    narrated,
	}
	if err := writer.SaveMeta(meta); err != nil {
		fmt.Fprintf(o.stderr, "[orchestrator] warning: %v\n", err)
	}

	rep, err := reporter.New()
	if err != nil {
		return nil, fmt.Errorf("create reporter: %w", err)
	}
	reportData.Hashes = writer.Hashes()
	reportData.TotalDuration = time.Since(startTime).String()
	html, err := rep.GenerateString(reportData)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	if err := writer.WriteFile("report.html", []byte(html)); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	reportPath := writer.Path("report.html")

	if err := writer.SaveManifest(runID); err != nil {
		fmt.Fprintf(o.stderr, "[orchestrator] warning: manifest: %v\n", err)
	}
	fmt.Fprintf(o.stderr, "[*] Report generated: %s\n", reportPath)

	res := &Result{
		RunID:      runID,
		OutputDir:  outputDir,
		ReportPath: reportPath,
		Summary:    summary,
		Detections: queue,
		Matches:    matches,
		Narrative:  narrative,
		Narrated:   narrated,
	}

	// --- Bundle Export ---
	if o.cfg.Output.Bundle {
		fmt.Fprintf(o.stderr, "[*] Creating run bundle...\n")
		zipPath, zipErr := reporter.ExportBundle(outputDir, runID, o.opts.Version)
		if zipErr != nil {
			fmt.Fprintf(o.stderr, "[orchestrator] warning: bundle export: %v\n", zipErr)
		} else {
			res.BundlePath = zipPath
			fmt.Fprintf(o.stderr, "[*] Run bundle: %s\n", zipPath)
		}
	}

	fmt.Fprintf(o.stderr, "[*] Total time: %s\n", time.Since(startTime).Round(time.Millisecond))
	o.printSummary(res)

	if o.opts.Serve {
		classify := ClassifyFunc(model, engine, o.cfg.Priority, o.metrics)
		return res, o.serve(ctx, html, reportPath, classify, nil)
	}
	if o.cfg.Output.OpenBrowser {
		if err := browser.Open(browser.FileURL(reportPath)); err != nil {
			logger.Warnf("open browser: %v", err)
		}
	}
	return res, nil
}

func (o *Orchestrator) printSummary(res *Result) {
	s := res.Summary
	fmt.Fprintf(o.stdout, "\n=== phish-triage Report ===\n")
	fmt.Fprintf(o.stdout, "URLs: %d | Phishing: %d | Legitimate: %d\n", s.Total, s.Phishing, s.Legitimate)
	fmt.Fprintf(o.stdout, "HIGH: %d | MEDIUM: %d | LOW: %d\n",
		s.ByPriority[priority.High], s.ByPriority[priority.Medium], s.ByPriority[priority.Low])
	if len(res.Matches) > 0 {
		fmt.Fprintf(o.stdout, "Rule matches: %d\n", len(res.Matches))
	}
	fmt.Fprintf(o.stdout, "Report: %s\n", res.ReportPath)
	if res.BundlePath != "" {
		fmt.Fprintf(o.stdout, "Bundle: %s\n", res.BundlePath)
	}
}

func (o *Orchestrator) readURLs() ([]string, error) {
	var urls []string
	if o.opts.Input != "" {
		read, err := collector.ReadURLs(o.opts.Input, o.cfg.Input.URLColumn)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		urls = append(urls, read...)
	}
	return append(urls, o.opts.URLs...), nil
}

func (o *Orchestrator) inputLabel() string {
	switch {
	case o.opts.Input != "" && len(o.opts.URLs) > 0:
		return fmt.Sprintf("%s (+%d from command line)", o.opts.Input, len(o.opts.URLs))
	case o.opts.Input != "":
		return o.opts.Input
	default:
		return "command line"
	}
}

// loadModel returns the injected model or loads model.path.
func (o *Orchestrator) loadModel() (*classifier.Model, error) {
	if o.model != nil {
		return o.model, nil
	}
	m, err := classifier.Load(o.cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	if o.opts.Verbose {
		fmt.Fprintf(o.stderr, "[orchestrator] model: %s (%d trees)\n", o.cfg.Model.Path, len(m.Trees))
	}
	o.model = m
	return m, nil
}

func (o *Orchestrator) modelPath() string {
	if o.cfg.Model.Path == "" {
		return ""
	}
	if abs, err := filepath.Abs(o.cfg.Model.Path); err == nil {
		return abs
	}
	return o.cfg.Model.Path
}

// narrate runs the summarizer over report. enabled gates the configured
// narrator; an injected summarizer always runs unless NoNarrate is set.
// The second result reports whether model output (not the fallback) came back.
func (o *Orchestrator) narrate(ctx context.Context, kind narrator.Kind, report string, enabled bool) (string, bool) {
	if o.opts.NoNarrate {
		return "", false
	}
	s := o.summarizer
	if s == nil {
		if !enabled {
			return "", false
		}
		provider, err := narrator.NewProvider(
			o.cfg.LLM.Provider,
			o.cfg.LLM.APIKey,
			o.cfg.LLM.Model,
			o.cfg.LLM.Endpoint,
			o.cfg.LLM.Command,
			o.cfg.LLM.Timeout,
		)
		if err != nil {
			fmt.Fprintf(o.stderr, "[orchestrator] warning: narration disabled: %v\n", err)
			return "", false
		}
		s = narrator.New(provider, kind, time.Duration(o.cfg.LLM.Timeout)*time.Second, o.cfg.LLM.Fallback)
	}

	fmt.Fprintf(o.stderr, "[*] Narrating with LLM (%s/%s)...\n", o.cfg.LLM.Provider, o.cfg.LLM.Model)
	start := time.Now()
	text := s.Summarize(ctx, report)
	ok := text != "" && text != fallbackOf(s, o.cfg.LLM.Fallback)
	o.metrics.ObserveNarration(ok)
	if ok {
		fmt.Fprintf(o.stderr, "[*] Narration complete (%s)\n", time.Since(start).Round(time.Millisecond))
	} else {
		fmt.Fprintf(o.stderr, "[orchestrator] warning: narration unavailable, using fallback text\n")
	}
	return text, ok
}

// fallbackOf returns the fallback text of s. Summarizers that do not expose
// one are compared against the configured fallback.
func fallbackOf(s narrator.Summarizer, configured string) string {
	if f, ok := s.(interface{ Fallback() string }); ok {
		return f.Fallback()
	}
	if configured != "" {
		return configured
	}
	return narrator.DefaultFallback
}
