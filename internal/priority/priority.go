// Package priority buckets a probability into an alert priority level.
package priority

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Level is an alert priority bucket.
type Level string

const (
	High   Level = "HIGH"
	Medium Level = "MEDIUM"
	Low    Level = "LOW"
)

// Default cutoffs.
const (
	DefaultHigh   = 0.95
	DefaultMedium = 0.70
)

// ErrOutOfRange is returned for probabilities or cutoffs outside [0,1].
var ErrOutOfRange = errors.New("probability out of range [0,1]")

// Levels lists all levels from most to least urgent.
var Levels = []Level{High, Medium, Low}

// Thresholds holds the inclusive lower bounds of the HIGH and MEDIUM buckets.
type Thresholds struct {
	High   float64 `toml:"high" json:"high" yaml:"high"`
	Medium float64 `toml:"medium" json:"medium" yaml:"medium"`
}

// DefaultThresholds returns the 0.95 / 0.70 cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{High: DefaultHigh, Medium: DefaultMedium}
}

// Validate checks that both cutoffs lie in [0,1] and Medium <= High.
func (t Thresholds) Validate() error {
	if !inUnit(t.High) {
		return fmt.Errorf("high cutoff %v: %w", t.High, ErrOutOfRange)
	}
	if !inUnit(t.Medium) {
		return fmt.Errorf("medium cutoff %v: %w", t.Medium, ErrOutOfRange)
	}
	if t.Medium > t.High {
		return fmt.Errorf("medium cutoff %v exceeds high cutoff %v", t.Medium, t.High)
	}
	return nil
}

// Prioritize maps p to HIGH when p >= t.High, MEDIUM when t.Medium <= p < t.High,
// and LOW otherwise. A probability equal to a cutoff belongs to the higher bucket.
func Prioritize(p float64, t Thresholds) (Level, error) {
	if !inUnit(p) {
		return "", fmt.Errorf("prioritize %v: %w", p, ErrOutOfRange)
	}
	switch {
	case p >= t.High:
		return High, nil
	case p >= t.Medium:
		return Medium, nil
	default:
		return Low, nil
	}
}

// Rank orders levels for queue sorting: HIGH=0, MEDIUM=1, LOW=2, unknown=3.
func (l Level) Rank() int {
	switch l {
	case High:
		return 0
	case Medium:
		return 1
	case Low:
		return 2
	default:
		return 3
	}
}

// Valid reports whether l is one of the three known levels.
func (l Level) Valid() bool {
	return l.Rank() < 3
}

// ParseLevel accepts HIGH/MEDIUM/LOW in any case, plus the ALTA/MEDIA/BAIXA
// spellings used by older alert exports.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH", "ALTA":
		return High, nil
	case "MEDIUM", "MEDIA", "MÉDIA":
		return Medium, nil
	case "LOW", "BAIXA":
		return Low, nil
	default:
		return "", fmt.Errorf("unknown priority level %q", s)
	}
}

func inUnit(x float64) bool {
	return !math.IsNaN(x) && x >= 0 && x <= 1
}
