package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dgallion1/docsite/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

type buildRequest struct {
	Sets []string `json:"sets"`
}

// handleBuild queues a static export of the requested sets, or all of them.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		jsonError(w, "builds are disabled", http.StatusServiceUnavailable)
		return
	}

	var req buildRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	for _, name := range req.Sets {
		if _, ok := s.site.Set(name); !ok {
			jsonError(w, "unknown content set: "+name, http.StatusBadRequest)
			return
		}
	}

	job := pipeline.NewJob(req.Sets, s.cfg.OutputDir)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("build queued", "job_id", job.ID, "sets", req.Sets)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/builds/%s/status", job.ID),
	})
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		jsonError(w, "builds are disabled", http.StatusServiceUnavailable)
		return
	}
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
