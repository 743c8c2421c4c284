// Package narrator turns a plain-text triage report into an analyst-facing
// narrative using an external language model.
package narrator

import (
	"context"
	"strings"
	"time"

	"github.com/iyulab/phish-triage/internal/logger"
)

// DefaultFallback is returned when no narrative could be produced.
const DefaultFallback = "Narrative analysis unavailable."

// Summarizer produces a narrative for a report. It never fails: callers get
// fallback text instead of an error.
type Summarizer interface {
	Summarize(ctx context.Context, report string) string
}

// Narrator implements Summarizer over a Provider.
type Narrator struct {
	provider Provider
	kind     Kind
	timeout  time.Duration
	fallback string
}

// New creates a Narrator. A zero timeout means no deadline beyond ctx; an
// empty fallback uses DefaultFallback.
func New(provider Provider, kind Kind, timeout time.Duration, fallback string) *Narrator {
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Narrator{
		provider: provider,
		kind:     kind,
		timeout:  timeout,
		fallback: fallback,
	}
}

// Fallback returns the text used when narration fails.
func (n *Narrator) Fallback() string {
	return n.fallback
}

// Summarize asks the provider for a narrative of report.
func (n *Narrator) Summarize(ctx context.Context, report string) string {
	if strings.TrimSpace(report) == "" {
		return n.fallback
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	out, err := n.provider.Complete(ctx, SystemPrompt(n.kind), BuildPrompt(n.kind, report))
	if err != nil {
		logger.Warnf("narration failed: %v", err)
		return n.fallback
	}
	out = strings.TrimSpace(out)
	if out == "" {
		logger.Warnf("narration returned empty output")
		return n.fallback
	}
	return out
}

// Static is a Summarizer that always returns the same text.
type Static string

func (s Static) Summarize(context.Context, string) string {
	return string(s)
}
