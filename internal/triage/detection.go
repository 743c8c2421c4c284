// Package triage attaches priorities to classification results and
// summarizes a batch of detections.
package triage

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/iyulab/phish-triage/internal/classifier"
	"github.com/iyulab/phish-triage/internal/priority"
)

// Detection is a classified URL with its priority bucket.
type Detection struct {
	classifier.Result
	Priority priority.Level `json:"priority"`
}

// Summary totals a batch of detections.
type Summary struct {
	Total      int                    `json:"total" yaml:"total"`
	Phishing   int                    `json:"phishing" yaml:"phishing"`
	Legitimate int                    `json:"legitimate" yaml:"legitimate"`
	ByPriority map[priority.Level]int `json:"by_priority" yaml:"by_priority"`
}

// Prioritize buckets each result by its phishing probability.
func Prioritize(results []classifier.Result, t priority.Thresholds) ([]Detection, error) {
	out := make([]Detection, len(results))
	for i, r := range results {
		lvl, err := priority.Prioritize(r.ProbabilityPhishing, t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.URL, err)
		}
		out[i] = Detection{Result: r, Priority: lvl}
	}
	return out, nil
}

// Summarize counts detections by label and priority.
func Summarize(ds []Detection) Summary {
	s := Summary{
		Total:      len(ds),
		ByPriority: map[priority.Level]int{priority.High: 0, priority.Medium: 0, priority.Low: 0},
	}
	for _, d := range ds {
		if d.Label == classifier.Phishing {
			s.Phishing++
		} else {
			s.Legitimate++
		}
		s.ByPriority[d.Priority]++
	}
	return s
}

// SortQueue returns a copy ordered by priority, then phishing probability
// descending. Ties keep input order.
func SortQueue(ds []Detection) []Detection {
	out := make([]Detection, len(ds))
	copy(out, ds)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].ProbabilityPhishing > out[j].ProbabilityPhishing
	})
	return out
}

// CSVHeader is the column layout of detections.csv.
func CSVHeader() []string {
	return []string{"url", "label", "confidence", "prob_legitimate", "prob_phishing", "priority"}
}

// CSVRecord renders d in CSVHeader order.
func (d Detection) CSVRecord() []string {
	return []string{
		d.URL,
		string(d.Label),
		strconv.FormatFloat(d.Confidence, 'f', 2, 64),
		strconv.FormatFloat(d.ProbabilityLegitimate, 'f', 6, 64),
		strconv.FormatFloat(d.ProbabilityPhishing, 'f', 6, 64),
		string(d.Priority),
	}
}
