package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/iyulab/phish-triage/internal/alerts"
	"github.com/iyulab/phish-triage/internal/narrator"
	"github.com/iyulab/phish-triage/internal/priority"
	"github.com/iyulab/phish-triage/internal/reporter"
)

// AlertOptions selects and presents an alert queue.
type AlertOptions struct {
	Input      string   // alert CSV; defaults to alerts.path
	Priorities []string // keep only these levels
	Labels     []string // keep only these labels
	Narrate    bool
	Serve      bool
}

// AlertResult describes a rendered alert queue.
type AlertResult struct {
	Queue     *alerts.Queue
	Text      string
	Narrative string
	Narrated  bool
}

// RunAlerts loads a prioritized alert CSV once, filters it, prints the queue
// and optionally narrates and serves it.
func (o *Orchestrator) RunAlerts(ctx context.Context, ao AlertOptions) (*AlertResult, error) {
	path := ao.Input
	if path == "" {
		path = o.cfg.Alerts.Path
	}
	if path == "" {
		return nil, errors.New("no alert file: pass --input or set alerts.path")
	}

	levels := make([]priority.Level, 0, len(ao.Priorities))
	for _, p := range ao.Priorities {
		lvl, err := priority.ParseLevel(p)
		if err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}

	full, err := alerts.Load(path, o.alertOptions())
	if err != nil {
		return nil, err
	}
	if full.Derived() {
		fmt.Fprintf(o.stderr, "[*] No %q column: priorities derived from %q\n",
			o.cfg.Alerts.PriorityColumn, o.cfg.Alerts.ProbabilityColumn)
	}
	if n := full.Invalid(); n > 0 {
		fmt.Fprintf(o.stderr, "[orchestrator] warning: %d alert(s) without a usable priority\n", n)
	}
	q := full.Filter(levels, ao.Labels)

	data := reporter.NewAlertReportData(q, path, o.opts.Version, o.cfg.Priority)
	text := reporter.RenderAlertsText(data)
	res := &AlertResult{Queue: q, Text: text}

	if ao.Narrate {
		res.Narrative, res.Narrated = o.narrate(ctx, narrator.KindAlerts, text, true)
		data.Narrative = res.Narrative
	}

	fmt.Fprint(o.stdout, text)
	if res.Narrative != "" {
		fmt.Fprintf(o.stdout, "\nNarrative\n%s\n", res.Narrative)
	}

	if ao.Serve {
		rep, err := reporter.New()
		if err != nil {
			return res, fmt.Errorf("create reporter: %w", err)
		}
		html, err := rep.GenerateAlertsString(data)
		if err != nil {
			return res, fmt.Errorf("generate report: %w", err)
		}
		return res, o.serve(ctx, html, "", o.classifier(), full)
	}
	return res, nil
}

func (o *Orchestrator) alertOptions() alerts.Options {
	return alerts.Options{
		ProbabilityColumn: o.cfg.Alerts.ProbabilityColumn,
		PriorityColumn:    o.cfg.Alerts.PriorityColumn,
		LabelColumn:       o.cfg.Alerts.LabelColumn,
		Thresholds:        o.cfg.Priority,
	}
}
