// Package sigma evaluates Sigma detection rules against scored URLs.
package sigma

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"

	sigmalib "github.com/bradleyjkemp/sigma-go"
	"github.com/bradleyjkemp/sigma-go/evaluator"

	"github.com/iyulab/phish-triage/internal/features"
	"github.com/iyulab/phish-triage/internal/triage"
)

// Category is the logsource category URL rules must declare (or leave empty).
const Category = "url"

//go:embed rules
var embeddedRules embed.FS

// Engine evaluates Sigma rules against URL events.
// Safe for concurrent use after construction.
type Engine struct {
	rules []evaluator.RuleEvaluator
}

// NewDefault creates an Engine loaded with the built-in embedded Sigma rules.
func NewDefault() (*Engine, error) {
	sub, err := fs.Sub(embeddedRules, "rules")
	if err != nil {
		return nil, err
	}
	return New(sub)
}

// New creates an Engine by loading Sigma rules from the given FS.
// All .yml/.yaml files are parsed as Sigma rules; rules for other logsource
// categories are skipped.
func New(rulesFS fs.FS) (*Engine, error) {
	var rules []evaluator.RuleEvaluator

	err := fs.WalkDir(rulesFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		data, err := fs.ReadFile(rulesFS, path)
		if err != nil {
			return err
		}
		rule, err := sigmalib.ParseRule(data)
		if err != nil {
			return fmt.Errorf("parse rule %s: %w", path, err)
		}
		if cat := rule.Logsource.Category; cat != "" && cat != Category {
			return nil
		}
		rules = append(rules, *evaluator.ForRule(rule))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Engine{rules: rules}, nil
}

// Len returns the number of loaded rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// MatchAll evaluates all rules against each detection and returns matches in
// detection order.
func (e *Engine) MatchAll(ctx context.Context, ds []triage.Detection) []SigmaMatch {
	var matches []SigmaMatch
	for _, d := range ds {
		if ctx.Err() != nil {
			break
		}
		matches = append(matches, e.Match(ctx, d)...)
	}
	return matches
}

// Match evaluates all rules against a single detection.
func (e *Engine) Match(ctx context.Context, d triage.Detection) []SigmaMatch {
	event := Event(d)
	var matches []SigmaMatch
	for _, ev := range e.rules {
		res, err := ev.Matches(ctx, event)
		if err != nil || !res.Match {
			continue
		}
		matches = append(matches, SigmaMatch{
			URL:       d.URL,
			RuleTitle: ev.Rule.Title,
			RuleID:    ev.Rule.ID,
			Level:     ev.Rule.Level,
			Tags:      ev.Rule.Tags,
		})
	}
	return matches
}

// Event flattens a detection into the field map rules are written against.
// Every value is a string.
func Event(d triage.Detection) map[string]interface{} {
	event := map[string]interface{}{
		"url":      d.URL,
		"host":     features.Host(d.URL),
		"tld":      features.TLD(d.URL),
		"label":    string(d.Label),
		"priority": string(d.Priority),
	}
	for name, v := range d.Features.Map() {
		event[name] = strconv.Itoa(v)
	}
	return event
}
