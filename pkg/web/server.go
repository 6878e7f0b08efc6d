package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/include-cycles/pkg/analysis"
	"github.com/ritzau/include-cycles/pkg/lens"
	"github.com/ritzau/include-cycles/pkg/logging"
	"github.com/ritzau/include-cycles/pkg/model"
	"github.com/ritzau/include-cycles/pkg/pubsub"
)

// ResultSource hands out the most recent analysis result. *analysis.Runner
// implements it.
type ResultSource interface {
	Last() *analysis.Result
}

// Server exposes analysis results over HTTP and streams run progress over
// Server-Sent Events
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher

	mu       sync.RWMutex
	results  ResultSource
	report   *model.Report
	snapshot *lens.GraphSnapshot // graph of the previous report
	diff     *lens.GraphDiff     // changes since the previous report
	status   pubsub.AnalysisStatus
}

// NewServer creates a new web server
func NewServer() *Server {
	s := &Server{
		router:    mux.NewRouter(),
		publisher: pubsub.NewSSEPublisher(),
		status:    pubsub.AnalysisStatus{State: analysis.StateAnalyzing, Message: "Waiting for first analysis"},
	}
	s.setupRoutes()
	return s
}

// SetResultSource connects the file details endpoint to analysis results.
// Without a source file details are unavailable.
func (s *Server) SetResultSource(results ResultSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
}

// PublishStatus publishes a run state change. A new run starts with
// analysis.StateAnalyzing.
func (s *Server) PublishStatus(state, message string) error {
	s.mu.Lock()
	if state == analysis.StateAnalyzing {
		s.status.Run++
	}
	s.status.State = state
	s.status.Message = message
	status := s.status
	s.mu.Unlock()

	return s.publisher.PublishStatus(status)
}

// PublishReport stores the report for the API and announces it to subscribers
func (s *Server) PublishReport(report *model.Report) error {
	s.mu.Lock()
	diff := lens.ComputeDiff(s.snapshot, report.Graph)
	s.report = report
	s.snapshot = lens.CreateSnapshot(report.Graph)
	s.diff = diff
	s.mu.Unlock()

	data := pubsub.ReportData{
		Nodes:        report.Counts.Nodes,
		Edges:        report.Counts.Edges,
		Cycles:       report.Counts.Cycles,
		Issues:       report.Counts.Issues,
		Summary:      report.Summary,
		Changed:      !diff.Empty(),
		AddedEdges:   len(diff.AddedEdges),
		RemovedEdges: len(diff.RemovedEdges),
	}
	return s.publisher.PublishReport(data)
}

// Handler returns the HTTP handler, wrapped with request logging
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	// API routes
	s.router.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/api/report", s.handleReport).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/cycles", s.handleCycles).Methods("GET")
	s.router.HandleFunc("/api/components", s.handleComponents).Methods("GET")
	s.router.HandleFunc("/api/directories", s.handleDirectories).Methods("GET")
	s.router.HandleFunc("/api/issues", s.handleIssues).Methods("GET")
	s.router.HandleFunc("/api/files/{id:.+}", s.handleFileDetails).Methods("GET")
	s.router.HandleFunc("/api/focus/{id:.+}", s.handleFocusedGraph).Methods("GET")
	s.router.HandleFunc("/api/diff", s.handleDiff).Methods("GET")
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]

	// Create subscription before committing to a streaming response
	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if errors.Is(err, pubsub.ErrUnknownTopic) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	// Stream events until the client goes away or the publisher closes
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.ErrorContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
				return
			}
			flush(w)
		}
	}
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	writeJSON(w, r, status)
}

// currentReport writes 503 and returns nil until the first run completes
func (s *Server) currentReport(w http.ResponseWriter) *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.report == nil {
		http.Error(w, "Analysis not available yet", http.StatusServiceUnavailable)
	}
	return s.report
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if report := s.currentReport(w); report != nil {
		writeJSON(w, r, report)
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if report := s.currentReport(w); report != nil {
		writeJSON(w, r, report.Graph)
	}
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	if report := s.currentReport(w); report != nil {
		writeJSON(w, r, report.Cycles)
	}
}

func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	if report := s.currentReport(w); report != nil {
		writeJSON(w, r, report.Components)
	}
}

func (s *Server) handleDirectories(w http.ResponseWriter, r *http.Request) {
	report := s.currentReport(w)
	if report == nil {
		return
	}

	response := map[string]any{
		"dependencies": report.DirectoryDeps,
		"cycles":       report.DirectoryCycles,
	}
	writeJSON(w, r, response)
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	report := s.currentReport(w)
	if report == nil {
		return
	}

	kind := model.IssueKind(r.URL.Query().Get("kind"))
	if kind == "" {
		writeJSON(w, r, report.Issues)
		return
	}
	filtered := make([]model.Issue, 0)
	for _, issue := range report.Issues {
		if issue.Kind == kind {
			filtered = append(filtered, issue)
		}
	}
	writeJSON(w, r, filtered)
}

func (s *Server) handleFileDetails(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	results := s.results
	s.mu.RUnlock()

	var result *analysis.Result
	if results != nil {
		result = results.Last()
	}
	if result == nil {
		http.Error(w, "Analysis not available yet", http.StatusServiceUnavailable)
		return
	}

	id := mux.Vars(r)["id"]
	details, ok := result.FileDetails(id)
	if !ok {
		http.Error(w, fmt.Sprintf("File not found: %s", id), http.StatusNotFound)
		return
	}
	writeJSON(w, r, details)
}

func (s *Server) handleFocusedGraph(w http.ResponseWriter, r *http.Request) {
	report := s.currentReport(w)
	if report == nil {
		return
	}

	focus := lens.Focus{
		Selected:     []string{mux.Vars(r)["id"]},
		Depth:        1,
		HideExternal: r.URL.Query().Get("hideExternal") == "true",
	}
	if depth := r.URL.Query().Get("depth"); depth != "" {
		d, err := strconv.Atoi(depth)
		if err != nil || d < 0 {
			http.Error(w, fmt.Sprintf("Invalid depth: %s", depth), http.StatusBadRequest)
			return
		}
		focus.Depth = d
	}

	focused, err := lens.RenderGraph(report.Graph, focus)
	if errors.Is(err, lens.ErrEmptySelection) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, focused)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	diff := s.diff
	s.mu.RUnlock()

	if diff == nil {
		http.Error(w, "Analysis not available yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, diff)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.ErrorContext(r.Context(), "failed to encode response", "path", r.URL.Path, "error", err)
	}
}

// Start serves on the given port until ctx is done
func (s *Server) Start(ctx context.Context, port int) error {
	logger := logging.New("web")
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting web server", "url", fmt.Sprintf("http://localhost%s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.publisher.Close()
		return err
	case <-ctx.Done():
	}

	// Closing the publisher ends every open event stream
	_ = s.publisher.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("web server stopped")
	return nil
}

// Close ends all event streams
func (s *Server) Close() error {
	return s.publisher.Close()
}
