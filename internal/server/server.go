// Package server serves the latest report and a small JSON API on localhost.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iyulab/phish-triage/internal/alerts"
	"github.com/iyulab/phish-triage/internal/logger"
	"github.com/iyulab/phish-triage/internal/metrics"
	"github.com/iyulab/phish-triage/internal/priority"
	"github.com/iyulab/phish-triage/internal/sigma"
	"github.com/iyulab/phish-triage/internal/triage"
)

// maxClassifyBody bounds the size of a classify request.
const maxClassifyBody = 64 << 10

// Classification is the response of POST /api/classify.
type Classification struct {
	triage.Detection
	RuleMatches []sigma.SigmaMatch `json:"rule_matches,omitempty"`
}

// ClassifyFunc scores one URL.
type ClassifyFunc func(ctx context.Context, url string) (Classification, error)

// Options wires optional collaborators into the server.
type Options struct {
	Classify ClassifyFunc
	Alerts   *alerts.Queue
	Metrics  *metrics.Metrics
	// Reload returns fresh report HTML for POST /api/reload.
	Reload func() (string, error)
}

// Server is a local HTTP server that serves the report and the JSON API.
type Server struct {
	mu         sync.RWMutex
	reportHTML string // cached HTML of current report
	opts       Options
	httpServer *http.Server
}

// New creates a Server. The report may be replaced later with UpdateReport
// or through POST /api/reload.
func New(html string, opts Options) *Server {
	return &Server{
		reportHTML: html,
		opts:       opts,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.observe)

	r.Get("/", s.handleReport)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	r.Route("/api", func(api chi.Router) {
		api.Get("/alerts", s.handleAlerts)
		api.Post("/classify", s.handleClassify)
		api.Post("/reload", s.handleReload)
	})
	return r
}

// Start begins listening on the given port (0 = OS-assigned). Returns "host:port".
func (s *Server) Start(ctx context.Context, port int) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go s.httpServer.Serve(ln) //nolint:errcheck

	return ln.Addr().String(), nil
}

// Stop shuts down the server, waiting up to five seconds for open requests.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.httpServer.Close()
	}
}

// UpdateReport sets the current report HTML (thread-safe).
func (s *Server) UpdateReport(html string) {
	s.mu.Lock()
	s.reportHTML = html
	s.mu.Unlock()
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.opts.Metrics.ObserveRequest(route, status)
		logger.Debugf("%s %s %d", r.Method, r.URL.Path, status)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	html := s.reportHTML
	s.mu.RUnlock()

	if html == "" {
		http.Error(w, "report not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

type alertsResponse struct {
	Counts  map[priority.Level]int `json:"counts"`
	Total   int                    `json:"total"`
	Derived bool                   `json:"derived"`
	Rows    []alerts.Row           `json:"rows"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.opts.Alerts == nil {
		jsonError(w, "no alert queue loaded", http.StatusNotFound)
		return
	}

	var levels []priority.Level
	for _, v := range splitList(r.URL.Query().Get("priority")) {
		lvl, err := priority.ParseLevel(v)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		levels = append(levels, lvl)
	}
	labels := splitList(r.URL.Query().Get("label"))

	q := s.opts.Alerts.Filter(levels, labels)
	rows := q.Rows()
	if rows == nil {
		rows = []alerts.Row{}
	}
	writeJSON(w, http.StatusOK, alertsResponse{
		Counts:  q.Counts(),
		Total:   q.Len(),
		Derived: q.Derived(),
		Rows:    rows,
	})
}

type classifyRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if s.opts.Classify == nil {
		jsonError(w, "classifier not loaded", http.StatusServiceUnavailable)
		return
	}

	var req classifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassifyBody)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		jsonError(w, "url field is required", http.StatusBadRequest)
		return
	}

	result, err := s.opts.Classify(r.Context(), req.URL)
	if err != nil {
		logger.Errorf("classify %q: %v", req.URL, err)
		jsonError(w, fmt.Sprintf("classification failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.opts.Reload == nil {
		jsonError(w, "reload not configured", http.StatusServiceUnavailable)
		return
	}
	html, err := s.opts.Reload()
	if err != nil {
		logger.Errorf("reload report: %v", err)
		jsonError(w, fmt.Sprintf("reload failed: %v", err), http.StatusInternalServerError)
		return
	}
	s.UpdateReport(html)
	logger.Infof("report reloaded (%d bytes)", len(html))
	writeJSON(w, http.StatusOK, map[string]int{"bytes": len(html)})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
