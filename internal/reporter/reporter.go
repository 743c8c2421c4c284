// Package reporter renders scan and alert-queue reports as HTML, plain text
// and YAML, and bundles a run directory into a zip archive.
package reporter

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/iyulab/phish-triage/internal/alerts"
	"github.com/iyulab/phish-triage/internal/collector"
	"github.com/iyulab/phish-triage/internal/priority"
	"github.com/iyulab/phish-triage/internal/sigma"
	"github.com/iyulab/phish-triage/internal/triage"
)

//go:embed templates/*.tmpl
var templates embed.FS

// ModelInfo identifies the classifier used for a run.
type ModelInfo struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Trees   int    `json:"trees" yaml:"trees"`
	Path    string `json:"path" yaml:"path"`
}

// ReportData is the complete data model passed to the scan templates.
type ReportData struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
	Input       string    `json:"input"`

	Model      ModelInfo           `json:"model"`
	Thresholds priority.Thresholds `json:"thresholds"`

	Summary triage.Summary `json:"summary"`

	// Detections in queue order (priority, then phishing probability).
	Detections []triage.Detection `json:"detections"`

	SigmaMatches []sigma.SigmaMatch `json:"sigma_matches,omitempty"`

	Narrative string `json:"narrative,omitempty"`

	Hashes []collector.FileHash `json:"hashes,omitempty"`

	ScoringDuration string `json:"scoring_duration"`
	TotalDuration   string `json:"total_duration"`
}

// AlertReportData is the data model of the alert queue view.
type AlertReportData struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Version     string                 `json:"version"`
	Source      string                 `json:"source"`
	Derived     bool                   `json:"derived"`
	Thresholds  priority.Thresholds    `json:"thresholds"`
	Counts      map[priority.Level]int `json:"counts"`
	Columns     []string               `json:"columns"`
	Rows        []alerts.Row           `json:"rows"`
	Invalid     int                    `json:"invalid"`
	Narrative   string                 `json:"narrative,omitempty"`
}

// NewAlertReportData snapshots q for rendering.
func NewAlertReportData(q *alerts.Queue, source, version string, t priority.Thresholds) AlertReportData {
	return AlertReportData{
		GeneratedAt: time.Now().UTC(),
		Version:     version,
		Source:      source,
		Derived:     q.Derived(),
		Thresholds:  t,
		Counts:      q.Counts(),
		Columns:     q.Header(),
		Rows:        q.Rows(),
		Invalid:     q.Invalid(),
	}
}

// Reporter generates HTML reports.
type Reporter struct {
	tmpl *template.Template
}

// New creates a Reporter with the embedded HTML templates.
func New() (*Reporter, error) {
	funcMap := template.FuncMap{
		"priorityClass": func(lvl priority.Level) string {
			switch lvl {
			case priority.High:
				return "prio-high"
			case priority.Medium:
				return "prio-medium"
			case priority.Low:
				return "prio-low"
			default:
				return "prio-unknown"
			}
		},
		"labelClass": func(label any) string {
			if strings.EqualFold(fmt.Sprint(label), "phishing") {
				return "label-phishing"
			}
			return "label-legitimate"
		},
		"sigmaLevelClass": func(level string) string {
			switch strings.ToLower(level) {
			case "critical":
				return "sigma-critical"
			case "high":
				return "sigma-high"
			case "medium":
				return "sigma-medium"
			case "low":
				return "sigma-low"
			default:
				return "sigma-info"
			}
		},
		"pct": func(p float64) string {
			return fmt.Sprintf("%.2f%%", p*100)
		},
		"prob": func(p float64) string {
			return fmt.Sprintf("%.4f", p)
		},
		"levels": func() []priority.Level {
			return priority.Levels
		},
	}

	tmpl, err := template.New("report").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	return &Reporter{tmpl: tmpl}, nil
}

// GenerateString renders the scan report to a string (used by serve mode).
func (r *Reporter) GenerateString(data ReportData) (string, error) {
	return r.render("report.html.tmpl", data)
}

// GenerateAlertsString renders the alert queue view to a string.
func (r *Reporter) GenerateAlertsString(data AlertReportData) (string, error) {
	return r.render("alerts.html.tmpl", data)
}

func (r *Reporter) render(name string, data any) (string, error) {
	var buf strings.Builder
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
