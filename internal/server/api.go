// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Jessiebrownleo/site-cloner/pkg/mirror"
)

// MirrorRequest is the request body for starting a mirror job.
// Note: the output path is NOT configurable via the API for security;
// the server places every job under its configured output root.
type MirrorRequest struct {
	URLs        []string `json:"urls"`
	Depth       int      `json:"depth,omitempty"`
	RateLimit   int      `json:"rateLimit,omitempty"`
	Connections int      `json:"connections,omitempty"`
	MaxFiles    int      `json:"maxFiles,omitempty"`
	MaxSizeMB   int      `json:"maxSizeMB,omitempty"`
	Filters     []string `json:"filters,omitempty"`
	ExtraArgs   string   `json:"extraArgs,omitempty"`
	Preset      string   `json:"preset,omitempty"`
	Resume      bool     `json:"resume,omitempty"`
}

// SettingsResponse represents the server's effective settings.
type SettingsResponse struct {
	OutputDir  string `json:"outputDir"`
	Executable string `json:"executable,omitempty"`
	StopGrace  string `json:"stopGrace"`
	LogBacklog int    `json:"logBacklog"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse represents a simple success message.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Handlers ---

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStartMirror starts a new mirror job.
func (s *Server) handleStartMirror(w http.ResponseWriter, r *http.Request) {
	var req MirrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "Missing required field: urls", "")
		return
	}

	job, err := s.jobs.CreateJob(req)
	switch {
	case errors.Is(err, ErrJobActive):
		writeError(w, http.StatusConflict, "A mirror job is already active", "Stop it before starting another")
		return
	case errors.Is(err, mirror.ErrInvalidSettings):
		writeError(w, http.StatusBadRequest, "Invalid mirror settings", err.Error())
		return
	case err != nil:
		var se *mirror.SpawnError
		if errors.As(err, &se) {
			writeError(w, http.StatusBadGateway, "Could not launch the mirroring tool", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create job", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, s.jobs.JobView(job))
}

// handleListJobs returns all jobs.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.ListJobs()
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// handleGetJob returns a specific job.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing job ID", "")
		return
	}

	job, ok := s.jobs.GetJob(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found", "")
		return
	}

	writeJSON(w, http.StatusOK, s.jobs.JobView(job))
}

// handleGetJobLogs returns the retained log entries for a job.
func (s *Server) handleGetJobLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entries, ok := s.jobs.JobLogs(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleStopJob stops a job's process, escalating after the grace period.
func (s *Server) handleStopJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.jobs.StopJob(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Job stopped"})
	case errors.Is(err, mirror.ErrNotRunning):
		writeError(w, http.StatusConflict, "Job is not running", "")
	case errors.Is(err, mirror.ErrTerminationTimeout):
		writeError(w, http.StatusGatewayTimeout, "Process did not terminate in time", err.Error())
	default:
		writeError(w, http.StatusNotFound, "Job not found", err.Error())
	}
}

// handlePauseJob suspends a job's process.
func (s *Server) handlePauseJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.jobs.PauseJob(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Job paused"})
	case errors.Is(err, mirror.ErrUnsupportedOperation):
		writeError(w, http.StatusNotImplemented, "Pause is not supported on this platform", "")
	case errors.Is(err, mirror.ErrNotRunning):
		writeError(w, http.StatusConflict, "Job is not running", "")
	default:
		writeError(w, http.StatusNotFound, "Job not found", err.Error())
	}
}

// handleResumeJob continues a paused job's process.
func (s *Server) handleResumeJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.jobs.ResumeJob(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Job resumed"})
	case errors.Is(err, mirror.ErrUnsupportedOperation):
		writeError(w, http.StatusNotImplemented, "Resume is not supported on this platform", "")
	case errors.Is(err, mirror.ErrNotRunning):
		writeError(w, http.StatusConflict, "Job is not paused", "")
	default:
		writeError(w, http.StatusNotFound, "Job not found", err.Error())
	}
}

// handleDeleteJob removes a job record, stopping it first if needed.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.jobs.DeleteJob(id) {
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Job deleted"})
	} else {
		writeError(w, http.StatusNotFound, "Job not found", "")
	}
}

// handlePresets returns the built-in argument presets.
func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"presets": mirror.Presets(),
	})
}

// handleGetSettings returns current settings.
// The output directory is reported but never updatable via the API.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	grace := s.config.StopGrace
	if grace <= 0 {
		grace = mirror.DefaultStopGrace
	}
	writeJSON(w, http.StatusOK, SettingsResponse{
		OutputDir:  s.config.OutputDir,
		Executable: s.config.Executable,
		StopGrace:  grace.String(),
		LogBacklog: s.config.LogBacklog,
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}
