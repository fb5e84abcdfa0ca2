package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reviewlens/internal/jobs"
	"reviewlens/internal/llm"
	"reviewlens/internal/pipeline"
)

// Server exposes the analysis pipeline over HTTP: job submission,
// polling, SSE progress streaming and cancellation.
type Server struct {
	orch     *pipeline.Orchestrator
	jobs     *jobs.Store
	provider llm.Provider
	mux      *http.ServeMux

	// pollInterval paces the SSE loop; tests shorten it.
	pollInterval time.Duration
	streamLimit  time.Duration
}

// New creates the server. The provider is only used for health
// reporting and may be nil.
func New(orch *pipeline.Orchestrator, store *jobs.Store, provider llm.Provider) *Server {
	s := &Server{
		orch:         orch,
		jobs:         store,
		provider:     provider,
		mux:          http.NewServeMux(),
		pollInterval: time.Second,
		streamLimit:  30 * time.Minute,
	}

	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleJob)
	s.mux.HandleFunc("GET /api/report/{id}", s.handleReport)
	s.mux.HandleFunc("GET /api/stream/{id}", s.handleStream)
	s.mux.HandleFunc("POST /api/jobs/{id}/cancel", s.handleCancel)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type analyzeRequest struct {
	Query    string `json:"query"`
	UseCache *bool  `json:"use_cache,omitempty"`
}

type analyzeResponse struct {
	JobID string `json:"job_id"`
}

// jobNotifier forwards pipeline events into the job store.
type jobNotifier struct {
	store *jobs.Store
	jobID string
}

func (n jobNotifier) Progress(lines ...string) { n.store.AppendProgress(n.jobID, lines...) }
func (n jobNotifier) Errors(lines ...string)   { n.store.AppendErrors(n.jobID, lines...) }

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}

	job := s.jobs.Create(query)
	useCache := req.UseCache == nil || *req.UseCache

	go func() {
		// The job outlives the submitting request.
		run := s.orch.Run
		if !useCache {
			run = s.orch.RunUncached
		}
		state, err := run(context.Background(), job.ID, query, jobNotifier{store: s.jobs, jobID: job.ID})
		if err != nil {
			s.jobs.Fail(job.ID, err.Error())
			return
		}
		if state.Final == nil {
			s.jobs.Fail(job.ID, "pipeline completed without generating a report")
			return
		}
		s.jobs.Complete(job.ID, state.Final)
	}()

	writeJSON(w, http.StatusAccepted, analyzeResponse{JobID: job.ID})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != jobs.StatusComplete {
		writeError(w, http.StatusAccepted, "report not ready yet")
		return
	}
	if job.Report == nil {
		writeError(w, http.StatusNotFound, "report data missing")
		return
	}
	writeJSON(w, http.StatusOK, job.Report)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.jobs.Get(id); !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if !s.orch.Cancel(id) {
		writeError(w, http.StatusConflict, "job is not running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceling"})
}

// handleStream replays job progress as server-sent events until the
// job finishes, errors, or the stream limit expires.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	deadline := time.Now().Add(s.streamLimit)
	sent := 0

	for {
		job, ok := s.jobs.Get(id)
		if !ok {
			s.sendEvent(w, flusher, "error", map[string]any{"message": "job not found"})
			return
		}

		for ; sent < len(job.Progress); sent++ {
			s.sendEvent(w, flusher, "progress", map[string]any{"message": job.Progress[sent]})
		}

		switch job.Status {
		case jobs.StatusComplete:
			s.sendEvent(w, flusher, "complete", map[string]any{"data": job.Report})
			return
		case jobs.StatusError:
			message := "unknown error"
			if len(job.Errors) > 0 {
				message = job.Errors[len(job.Errors)-1]
			}
			s.sendEvent(w, flusher, "error", map[string]any{"message": message})
			return
		}

		if time.Now().After(deadline) {
			s.sendEvent(w, flusher, "error", map[string]any{"message": "analysis timed out"})
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	llmStatus := "disabled"
	if s.provider != nil {
		llmStatus = "unhealthy"
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if s.provider.IsAvailable(ctx) {
			llmStatus = "healthy"
		}
	}

	status := "healthy"
	if llmStatus == "unhealthy" {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": status,
		"llm":    llmStatus,
	})
}

func (s *Server) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data map[string]any) {
	payload := map[string]any{"type": eventType}
	for k, v := range data {
		payload[k] = v
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", encoded)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
