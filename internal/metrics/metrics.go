// Package metrics exposes triage counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iyulab/phish-triage/internal/classifier"
	"github.com/iyulab/phish-triage/internal/sigma"
	"github.com/iyulab/phish-triage/internal/triage"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	urlsClassified *prometheus.CounterVec
	scoringSeconds prometheus.Histogram
	ruleMatches    *prometheus.CounterVec
	narrations     *prometheus.CounterVec
	apiRequests    *prometheus.CounterVec
}

// New creates a Metrics with its own registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		urlsClassified: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_urls_classified_total",
				Help: "Total number of URLs classified",
			},
			[]string{"label", "priority"},
		),
		scoringSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "triage_batch_scoring_seconds",
				Help:    "Time taken to score a batch of URLs",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		ruleMatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_rule_matches_total",
				Help: "Total number of Sigma rule matches",
			},
			[]string{"level"},
		),
		narrations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_narrations_total",
				Help: "Narration attempts by outcome",
			},
			[]string{"outcome"},
		),
		apiRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_api_requests_total",
				Help: "HTTP API requests by route and status class",
			},
			[]string{"route", "code"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDetections counts detections by label and priority.
func (m *Metrics) ObserveDetections(ds []triage.Detection) {
	if m == nil {
		return
	}
	for _, d := range ds {
		m.urlsClassified.WithLabelValues(string(d.Label), string(d.Priority)).Inc()
	}
}

// ObserveResult counts a single classification without a priority.
func (m *Metrics) ObserveResult(r classifier.Result, priority string) {
	if m == nil {
		return
	}
	m.urlsClassified.WithLabelValues(string(r.Label), priority).Inc()
}

// ObserveScoring records the wall time of a batch scoring pass.
func (m *Metrics) ObserveScoring(d time.Duration) {
	if m == nil {
		return
	}
	m.scoringSeconds.Observe(d.Seconds())
}

// ObserveRuleMatches counts rule matches by level.
func (m *Metrics) ObserveRuleMatches(matches []sigma.SigmaMatch) {
	if m == nil {
		return
	}
	for _, mt := range matches {
		m.ruleMatches.WithLabelValues(mt.Level).Inc()
	}
}

// ObserveNarration records whether narration produced model output.
func (m *Metrics) ObserveNarration(ok bool) {
	if m == nil {
		return
	}
	outcome := "fallback"
	if ok {
		outcome = "ok"
	}
	m.narrations.WithLabelValues(outcome).Inc()
}

// ObserveRequest counts an API request. code is the HTTP status.
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(route, statusClass(code)).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
