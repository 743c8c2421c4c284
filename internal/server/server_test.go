package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iyulab/phish-triage/internal/alerts"
	"github.com/iyulab/phish-triage/internal/classifier"
	"github.com/iyulab/phish-triage/internal/metrics"
	"github.com/iyulab/phish-triage/internal/priority"
	"github.com/iyulab/phish-triage/internal/server"
	"github.com/iyulab/phish-triage/internal/triage"
)

func TestServer_HealthEndpoint(t *testing.T) {
	srv := server.New("", server.Options{})
	addr, err := srv.Start(context.Background(), 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(addr, "127.0.0.1:") {
		t.Errorf("server should bind to loopback, got %s", addr)
	}
}

func TestServer_ReportEndpoint(t *testing.T) {
	srv := server.New("<html>test report</html>", server.Options{})
	addr, err := srv.Start(context.Background(), 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "test report") {
		t.Errorf("expected report content, got: %s", string(body))
	}
}

func TestServer_ReportNotReady(t *testing.T) {
	h := server.New("", server.Options{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestServer_UpdateReport(t *testing.T) {
	srv := server.New("<html>old</html>", server.Options{})
	h := srv.Handler()
	srv.UpdateReport("<html>new</html>")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(rec.Body.String(), "new") {
		t.Errorf("expected updated report, got %q", rec.Body.String())
	}
}

func TestServer_Reload(t *testing.T) {
	current := "<html>v2</html>"
	h := server.New("<html>v1</html>", server.Options{
		Reload: func() (string, error) { return current, nil },
	}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/reload", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("reload status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(rec.Body.String(), "v2") {
		t.Errorf("expected reloaded report, got %q", rec.Body.String())
	}
}

func TestServer_ReloadErrors(t *testing.T) {
	tests := []struct {
		name   string
		reload func() (string, error)
		want   int
	}{
		{"not configured", nil, http.StatusServiceUnavailable},
		{"read failure", func() (string, error) { return "", errors.New("gone") }, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := server.New("<html>keep</html>", server.Options{Reload: tt.reload})
			h := srv.Handler()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/reload", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
			if !strings.Contains(rec.Body.String(), "keep") {
				t.Errorf("report replaced after failed reload: %q", rec.Body.String())
			}
		})
	}
}

func fakeClassify(ctx context.Context, url string) (server.Classification, error) {
	if url == "boom" {
		return server.Classification{}, errors.New("model exploded")
	}
	return server.Classification{
		Detection: triage.Detection{
			Result: classifier.Result{
				URL:                 url,
				Label:               classifier.Phishing,
				ProbabilityPhishing: 0.97,
			},
			Priority: priority.High,
		},
	}, nil
}

func TestServer_Classify(t *testing.T) {
	m := metrics.New()
	h := server.New("", server.Options{Classify: fakeClassify, Metrics: m}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/classify", strings.NewReader(`{"url":"http://paypal-secure.tk/login"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["url"] != "http://paypal-secure.tk/login" || got["label"] != "phishing" || got["priority"] != "HIGH" {
		t.Errorf("response = %v", got)
	}

	// the request shows up on /metrics
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `triage_api_requests_total{code="2xx",route="/api/classify"} 1`) {
		t.Errorf("metrics missing classify request:\n%s", rec.Body.String())
	}
}

func TestServer_ClassifyErrors(t *testing.T) {
	tests := []struct {
		name string
		opts server.Options
		body string
		want int
	}{
		{"no classifier", server.Options{}, `{"url":"http://a"}`, http.StatusServiceUnavailable},
		{"invalid json", server.Options{Classify: fakeClassify}, `{`, http.StatusBadRequest},
		{"empty url", server.Options{Classify: fakeClassify}, `{"url":"  "}`, http.StatusBadRequest},
		{"classifier error", server.Options{Classify: fakeClassify}, `{"url":"boom"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			server.New("", tt.opts).Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/classify", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestServer_ClassifyMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	server.New("", server.Options{Classify: fakeClassify}).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/classify", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func loadQueue(t *testing.T) *alerts.Queue {
	t.Helper()
	q, err := alerts.Read(strings.NewReader("id,probability,label\na,0.99,DDoS\nb,0.80,DDoS\nc,0.10,BENIGN\n"), alerts.Options{
		ProbabilityColumn: "probability",
		PriorityColumn:    "priority",
		LabelColumn:       "label",
		Thresholds:        priority.DefaultThresholds(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestServer_Alerts(t *testing.T) {
	h := server.New("", server.Options{Alerts: loadQueue(t)}).Handler()

	tests := []struct {
		query string
		total int
	}{
		{"", 3},
		{"?priority=HIGH", 1},
		{"?priority=high,medium", 2},
		{"?label=BENIGN", 1},
		{"?priority=HIGH&label=BENIGN", 0},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/alerts"+tt.query, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", tt.query, rec.Code)
			continue
		}
		var resp struct {
			Total int          `json:"total"`
			Rows  []alerts.Row `json:"rows"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", tt.query, err)
		}
		if resp.Total != tt.total || len(resp.Rows) != tt.total {
			t.Errorf("%s: total = %d rows = %d, want %d", tt.query, resp.Total, len(resp.Rows), tt.total)
		}
	}
}

func TestServer_AlertsBadPriority(t *testing.T) {
	h := server.New("", server.Options{Alerts: loadQueue(t)}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/alerts?priority=URGENT", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_AlertsNotLoaded(t *testing.T) {
	rec := httptest.NewRecorder()
	server.New("", server.Options{}).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/alerts", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServer_MetricsWithoutRegistry(t *testing.T) {
	rec := httptest.NewRecorder()
	server.New("", server.Options{}).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
