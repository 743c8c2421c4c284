package reporter

import (
	"fmt"
	"strings"

	"github.com/iyulab/phish-triage/internal/features"
	"github.com/iyulab/phish-triage/internal/priority"
	"github.com/iyulab/phish-triage/internal/triage"
)

const rule = "======================================================================"

// maxTextRows bounds how many queue rows the text report lists.
const maxTextRows = 200

// RenderText renders the scan as plain text. The same text is the narration input.
func RenderText(data ReportData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PHISHING URL TRIAGE REPORT\n%s\n", rule)
	fmt.Fprintf(&b, "Run:       %s\n", data.RunID)
	fmt.Fprintf(&b, "Generated: %s\n", data.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	if data.Input != "" {
		fmt.Fprintf(&b, "Input:     %s\n", data.Input)
	}
	fmt.Fprintf(&b, "Model:     %s %s (%d trees)\n", data.Model.Name, data.Model.Version, data.Model.Trees)
	fmt.Fprintf(&b, "Cutoffs:   HIGH >= %.2f, MEDIUM >= %.2f\n\n", data.Thresholds.High, data.Thresholds.Medium)

	s := data.Summary
	fmt.Fprintf(&b, "Summary\n")
	fmt.Fprintf(&b, "  URLs scored: %d\n", s.Total)
	fmt.Fprintf(&b, "  Phishing:    %d\n", s.Phishing)
	fmt.Fprintf(&b, "  Legitimate:  %d\n", s.Legitimate)
	for _, lvl := range priority.Levels {
		fmt.Fprintf(&b, "  %-11s  %d\n", string(lvl)+":", s.ByPriority[lvl])
	}

	if len(data.SigmaMatches) > 0 {
		fmt.Fprintf(&b, "\nRule matches (%d)\n", len(data.SigmaMatches))
		for _, m := range data.SigmaMatches {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", strings.ToUpper(m.Level), m.RuleTitle, m.URL)
		}
	}

	fmt.Fprintf(&b, "\nQueue\n")
	for i, d := range data.Detections {
		if i == maxTextRows {
			fmt.Fprintf(&b, "  ... %d more\n", len(data.Detections)-maxTextRows)
			break
		}
		fmt.Fprintf(&b, "  %-6s %-10s p=%.4f  %s\n", d.Priority, d.Label, d.ProbabilityPhishing, d.URL)
	}
	if len(data.Detections) == 0 {
		fmt.Fprintf(&b, "  (empty)\n")
	}
	return b.String()
}

// RenderAlertsText renders an alert queue as plain text.
func RenderAlertsText(data AlertReportData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PRIORITIZED ALERT QUEUE\n%s\n", rule)
	fmt.Fprintf(&b, "Source:    %s\n", data.Source)
	if data.Derived {
		fmt.Fprintf(&b, "Cutoffs:   HIGH >= %.2f, MEDIUM >= %.2f (derived)\n", data.Thresholds.High, data.Thresholds.Medium)
	}
	fmt.Fprintf(&b, "\nAlerts: %d\n", len(data.Rows))
	for _, lvl := range priority.Levels {
		fmt.Fprintf(&b, "  %-11s  %d\n", string(lvl)+":", data.Counts[lvl])
	}
	if data.Invalid > 0 {
		fmt.Fprintf(&b, "  no priority: %d\n", data.Invalid)
	}

	fmt.Fprintf(&b, "\nQueue\n")
	for i, r := range data.Rows {
		if i == maxTextRows {
			fmt.Fprintf(&b, "  ... %d more\n", len(data.Rows)-maxTextRows)
			break
		}
		lvl := string(r.Priority)
		if lvl == "" {
			lvl = "?"
		}
		fmt.Fprintf(&b, "  %-6s", lvl)
		if r.HasProbability {
			fmt.Fprintf(&b, " p=%.4f", r.Probability)
		}
		for _, c := range data.Columns {
			if v := r.Fields[c]; v != "" {
				fmt.Fprintf(&b, " %s=%s", c, v)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatResult renders a single classification for terminal output.
func FormatResult(d triage.Detection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "URL:            %s\n", d.URL)
	fmt.Fprintf(&b, "Classification: %s\n", strings.ToUpper(string(d.Label)))
	fmt.Fprintf(&b, "Confidence:     %.2f%%\n", d.Confidence)
	fmt.Fprintf(&b, "Priority:       %s\n", d.Priority)
	fmt.Fprintf(&b, "Probabilities:  legitimate %.2f%%, phishing %.2f%%\n",
		d.ProbabilityLegitimate*100, d.ProbabilityPhishing*100)
	fmt.Fprintf(&b, "Features:\n")
	m := d.Features.Map()
	for _, name := range features.Names {
		fmt.Fprintf(&b, "  %-22s %d\n", name, m[name])
	}
	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}
