// Package alerts loads a prioritized alert CSV once into an immutable,
// sorted queue.
package alerts

import (
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/iyulab/phish-triage/internal/collector"
	"github.com/iyulab/phish-triage/internal/priority"
)

// Options names the columns of the alert CSV.
type Options struct {
	ProbabilityColumn string
	PriorityColumn    string
	LabelColumn       string
	Thresholds        priority.Thresholds
}

// Row is one alert. Fields holds every column of the source row keyed by
// header name.
type Row struct {
	Fields         map[string]string `json:"fields"`
	Probability    float64           `json:"probability"`
	HasProbability bool              `json:"has_probability"`
	Priority       priority.Level    `json:"priority"`
	Label          string            `json:"label,omitempty"`
}

// Queue is a read-only, sorted alert table.
type Queue struct {
	header  []string
	rows    []Row
	derived bool
	invalid int
}

// Load reads path into a Queue. When the priority column is absent and the
// probability column is present, priorities are derived from probabilities.
func Load(path string, opts Options) (*Queue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open alerts: %w", err)
	}
	defer f.Close()

	q, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return q, nil
}

// Read parses an alert CSV from r. opts.Thresholds is used as given; a
// zero value is a valid configuration that puts every derived row in HIGH.
// Non-finite probabilities (NaN, Inf) are treated as missing.
func Read(r io.Reader, opts Options) (*Queue, error) {
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}

	cr := collector.NewCSVReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return &Queue{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	probIdx := collector.ColumnIndex(header, opts.ProbabilityColumn)
	prioIdx := collector.ColumnIndex(header, opts.PriorityColumn)
	labelIdx := collector.ColumnIndex(header, opts.LabelColumn)
	q := &Queue{header: header, derived: prioIdx < 0 && probIdx >= 0}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row := Row{Fields: make(map[string]string, len(header))}
		for i, h := range header {
			if i < len(rec) {
				row.Fields[h] = rec[i]
			}
		}
		if v := cell(rec, probIdx); v != "" {
			if p, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(p) && !math.IsInf(p, 0) {
				row.Probability, row.HasProbability = p, true
			}
		}
		row.Label = cell(rec, labelIdx)

		switch {
		case q.derived && row.HasProbability:
			if lvl, err := priority.Prioritize(row.Probability, opts.Thresholds); err == nil {
				row.Priority = lvl
			}
		case prioIdx >= 0:
			if lvl, err := priority.ParseLevel(cell(rec, prioIdx)); err == nil {
				row.Priority = lvl
			}
		}
		if row.Priority == "" {
			q.invalid++
		}
		q.rows = append(q.rows, row)
	}

	sortRows(q.rows)
	return q, nil
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// sortRows orders by priority rank, then probability descending. Rows
// without a probability sort after those with one in the same bucket.
func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := rows[i].Priority.Rank(), rows[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		if rows[i].HasProbability != rows[j].HasProbability {
			return rows[i].HasProbability
		}
		return rows[i].Probability > rows[j].Probability
	})
}

// Header returns the source column names.
func (q *Queue) Header() []string {
	return append([]string(nil), q.header...)
}

// Len returns the number of rows.
func (q *Queue) Len() int {
	return len(q.rows)
}

// Rows returns a deep copy of the sorted rows.
func (q *Queue) Rows() []Row {
	if q.rows == nil {
		return nil
	}
	out := make([]Row, len(q.rows))
	for i, r := range q.rows {
		r.Fields = maps.Clone(r.Fields)
		out[i] = r
	}
	return out
}

// Derived reports whether priorities were computed from probabilities.
func (q *Queue) Derived() bool {
	return q.derived
}

// Invalid returns how many rows have no usable priority.
func (q *Queue) Invalid() int {
	return q.invalid
}

// Labels returns the distinct non-empty labels in first-seen order.
func (q *Queue) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range q.rows {
		if r.Label != "" && !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	return out
}

// Filter returns a new Queue holding rows whose priority is in levels and
// whose label is in labels. An empty set matches everything.
func (q *Queue) Filter(levels []priority.Level, labels []string) *Queue {
	lvlSet := make(map[priority.Level]bool, len(levels))
	for _, l := range levels {
		lvlSet[l] = true
	}
	labelSet := make(map[string]bool, len(labels))
	for _, l := range labels {
		labelSet[l] = true
	}

	out := &Queue{header: q.header, derived: q.derived}
	for _, r := range q.rows {
		if len(lvlSet) > 0 && !lvlSet[r.Priority] {
			continue
		}
		if len(labelSet) > 0 && !labelSet[r.Label] {
			continue
		}
		if r.Priority == "" {
			out.invalid++
		}
		out.rows = append(out.rows, r)
	}
	return out
}

// Counts totals rows per priority level. All three levels are present.
func (q *Queue) Counts() map[priority.Level]int {
	out := map[priority.Level]int{priority.High: 0, priority.Medium: 0, priority.Low: 0}
	for _, r := range q.rows {
		if r.Priority != "" {
			out[r.Priority]++
		}
	}
	return out
}
