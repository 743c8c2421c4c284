package reporter

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iyulab/phish-triage/internal/priority"
	"github.com/iyulab/phish-triage/internal/sigma"
)

// Summary is the machine-readable run summary written to summary.yaml.
type Summary struct {
	RunID       string              `yaml:"run_id"`
	GeneratedAt time.Time           `yaml:"generated_at"`
	Version     string              `yaml:"version"`
	Input       string              `yaml:"input,omitempty"`
	Model       ModelInfo           `yaml:"model"`
	Thresholds  priority.Thresholds `yaml:"thresholds"`
	Totals      SummaryTotals       `yaml:"totals"`
	RuleLevels  map[string]int      `yaml:"rule_matches,omitempty"`
	Top         []SummaryEntry      `yaml:"top,omitempty"`
	Narrated    bool                `yaml:"narrated"`
}

// SummaryTotals counts URLs by label and priority.
type SummaryTotals struct {
	URLs       int `yaml:"urls"`
	Phishing   int `yaml:"phishing"`
	Legitimate int `yaml:"legitimate"`
	High       int `yaml:"high"`
	Medium     int `yaml:"medium"`
	Low        int `yaml:"low"`
}

// SummaryEntry is one of the most urgent URLs.
type SummaryEntry struct {
	URL         string         `yaml:"url"`
	Priority    priority.Level `yaml:"priority"`
	Probability float64        `yaml:"prob_phishing"`
}

// maxSummaryTop bounds the number of URLs listed in summary.yaml.
const maxSummaryTop = 10

// NewSummary derives the YAML summary from report data. narrated reports
// whether a model narrative (not the fallback) was produced.
func NewSummary(data ReportData, narrated bool) Summary {
	s := Summary{
		RunID:       data.RunID,
		GeneratedAt: data.GeneratedAt,
		Version:     data.Version,
		Input:       data.Input,
		Model:       data.Model,
		Thresholds:  data.Thresholds,
		Totals: SummaryTotals{
			URLs:       data.Summary.Total,
			Phishing:   data.Summary.Phishing,
			Legitimate: data.Summary.Legitimate,
			High:       data.Summary.ByPriority[priority.High],
			Medium:     data.Summary.ByPriority[priority.Medium],
			Low:        data.Summary.ByPriority[priority.Low],
		},
		Narrated: narrated,
	}
	if len(data.SigmaMatches) > 0 {
		s.RuleLevels = sigma.CountByLevel(data.SigmaMatches)
	}
	for _, d := range data.Detections {
		if len(s.Top) == maxSummaryTop || d.Priority == priority.Low {
			break
		}
		s.Top = append(s.Top, SummaryEntry{URL: d.URL, Priority: d.Priority, Probability: d.ProbabilityPhishing})
	}
	return s
}

// MarshalSummary encodes s as YAML.
func MarshalSummary(s Summary) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return data, nil
}
