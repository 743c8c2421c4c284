package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/iyulab/phish-triage/internal/alerts"
	"github.com/iyulab/phish-triage/internal/browser"
	"github.com/iyulab/phish-triage/internal/classifier"
	"github.com/iyulab/phish-triage/internal/logger"
	"github.com/iyulab/phish-triage/internal/metrics"
	"github.com/iyulab/phish-triage/internal/priority"
	"github.com/iyulab/phish-triage/internal/server"
	"github.com/iyulab/phish-triage/internal/sigma"
	"github.com/iyulab/phish-triage/internal/triage"
)

// ClassifyFunc builds the single-URL scorer used by `check` and POST /api/classify.
// engine and m may be nil.
func ClassifyFunc(model *classifier.Model, engine *sigma.Engine, t priority.Thresholds, m *metrics.Metrics) server.ClassifyFunc {
	return func(ctx context.Context, url string) (server.Classification, error) {
		r := model.ClassifyURL(url)
		lvl, err := priority.Prioritize(r.ProbabilityPhishing, t)
		if err != nil {
			return server.Classification{}, fmt.Errorf("%s: %w", url, err)
		}
		m.ObserveResult(r, string(lvl))

		c := server.Classification{Detection: triage.Detection{Result: r, Priority: lvl}}
		if engine != nil {
			c.RuleMatches = engine.Match(ctx, c.Detection)
			m.ObserveRuleMatches(c.RuleMatches)
		}
		return c, nil
	}
}

// Check classifies each URL with the configured model.
func (o *Orchestrator) Check(ctx context.Context, urls []string) ([]server.Classification, error) {
	model, err := o.loadModel()
	if err != nil {
		return nil, err
	}
	engine, err := sigma.NewDefault()
	if err != nil {
		fmt.Fprintf(o.stderr, "[orchestrator] warning: sigma engine init: %v\n", err)
	}

	classify := ClassifyFunc(model, engine, o.cfg.Priority, o.metrics)
	out := make([]server.Classification, 0, len(urls))
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		c, err := classify(ctx, u)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Serve serves an existing report file (and the alert queue when
// alerts.path is set) until ctx is cancelled. The classify endpoint is
// available when the model loads.
func (o *Orchestrator) Serve(ctx context.Context, reportPath string) error {
	var html string
	if reportPath != "" {
		data, err := os.ReadFile(reportPath)
		if err != nil {
			return fmt.Errorf("read report: %w", err)
		}
		html = string(data)
	}

	var queue *alerts.Queue
	if o.cfg.Alerts.Path != "" {
		q, err := alerts.Load(o.cfg.Alerts.Path, o.alertOptions())
		if err != nil {
			fmt.Fprintf(o.stderr, "[orchestrator] warning: alert queue: %v\n", err)
		} else {
			queue = q
		}
	}

	return o.serve(ctx, html, reportPath, o.classifier(), queue)
}

// classifier returns the classify func, or nil when the model is unavailable.
func (o *Orchestrator) classifier() server.ClassifyFunc {
	model, err := o.loadModel()
	if err != nil {
		fmt.Fprintf(o.stderr, "[orchestrator] warning: classify endpoint disabled: %v\n", err)
		return nil
	}
	engine, err := sigma.NewDefault()
	if err != nil {
		fmt.Fprintf(o.stderr, "[orchestrator] warning: sigma engine init: %v\n", err)
	}
	return ClassifyFunc(model, engine, o.cfg.Priority, o.metrics)
}

// serve runs the local HTTP view until ctx is cancelled.
// A non-empty reportPath is re-read on POST /api/reload.
func (o *Orchestrator) serve(ctx context.Context, html, reportPath string, classify server.ClassifyFunc, queue *alerts.Queue) error {
	opts := server.Options{
		Classify: classify,
		Alerts:   queue,
		Metrics:  o.metrics,
	}
	if reportPath != "" {
		opts.Reload = func() (string, error) {
			data, err := os.ReadFile(reportPath)
			if err != nil {
				return "", fmt.Errorf("read report: %w", err)
			}
			return string(data), nil
		}
	}
	srv := server.New(html, opts)
	addr, err := srv.Start(ctx, o.cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Stop()

	url := "http://" + addr
	fmt.Fprintf(o.stderr, "[*] Serving on %s (Ctrl+C to stop)\n", url)
	if o.cfg.Output.OpenBrowser {
		if err := browser.Open(url); err != nil {
			logger.Warnf("open browser: %v", err)
		}
	}

	<-ctx.Done()
	fmt.Fprintf(o.stderr, "[*] Shutting down server...\n")
	return nil
}
