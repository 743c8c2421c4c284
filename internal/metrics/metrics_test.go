package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iyulab/phish-triage/internal/classifier"
	"github.com/iyulab/phish-triage/internal/priority"
	"github.com/iyulab/phish-triage/internal/sigma"
	"github.com/iyulab/phish-triage/internal/triage"
)

// counterValue sums a counter family filtered by label pairs.
func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range metric.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestObserveDetections(t *testing.T) {
	m := New()
	m.ObserveDetections([]triage.Detection{
		{Result: classifier.Result{Label: classifier.Phishing}, Priority: priority.High},
		{Result: classifier.Result{Label: classifier.Phishing}, Priority: priority.High},
		{Result: classifier.Result{Label: classifier.Legitimate}, Priority: priority.Low},
	})

	if got := counterValue(t, m, "triage_urls_classified_total", map[string]string{"label": "phishing", "priority": "HIGH"}); got != 2 {
		t.Errorf("phishing/HIGH = %v, want 2", got)
	}
	if got := counterValue(t, m, "triage_urls_classified_total", nil); got != 3 {
		t.Errorf("total = %v, want 3", got)
	}
}

func TestObserveRuleMatchesAndNarration(t *testing.T) {
	m := New()
	m.ObserveRuleMatches([]sigma.SigmaMatch{{Level: "high"}, {Level: "medium"}, {Level: "high"}})
	m.ObserveNarration(true)
	m.ObserveNarration(false)
	m.ObserveNarration(false)

	if got := counterValue(t, m, "triage_rule_matches_total", map[string]string{"level": "high"}); got != 2 {
		t.Errorf("high matches = %v, want 2", got)
	}
	if got := counterValue(t, m, "triage_narrations_total", map[string]string{"outcome": "fallback"}); got != 2 {
		t.Errorf("fallback narrations = %v, want 2", got)
	}
}

func TestObserveRequest_StatusClass(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/classify", 200)
	m.ObserveRequest("/api/classify", 400)
	m.ObserveRequest("/api/classify", 422)
	if got := counterValue(t, m, "triage_api_requests_total", map[string]string{"code": "4xx"}); got != 2 {
		t.Errorf("4xx = %v, want 2", got)
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.ObserveScoring(15 * time.Millisecond)
	m.ObserveResult(classifier.Result{Label: classifier.Legitimate}, "LOW")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"triage_batch_scoring_seconds_count 1", `triage_urls_classified_total{label="legitimate",priority="LOW"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveDetections([]triage.Detection{{}})
	m.ObserveScoring(time.Second)
	m.ObserveRuleMatches([]sigma.SigmaMatch{{Level: "high"}})
	m.ObserveNarration(true)
	m.ObserveRequest("/", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil handler code = %d, want 404", rec.Code)
	}
}
