package apihttp

import (
	"net/http"
	"strconv"

	"subtrans/internal/domain"
	"subtrans/internal/orchestrator"
)

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST to create a job")
	}
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.SourceURI == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "sourceUri is required")
		return
	}
	if req.TargetLanguage == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "targetLanguage is required")
		return
	}

	chain := s.registry.Chain(req.Backends)
	if len(chain) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no_backend", "none of the requested backends are configured")
		return
	}

	jobReq := orchestrator.JobRequest{
		SourceURI:               req.SourceURI,
		ExternalSubtitlePath:    req.ExternalSubtitlePath,
		PreferredSourceLanguage: req.PreferredSourceLanguage,
		TargetLanguage:          req.TargetLanguage,
		OutputFormat:            formatFromString(req.OutputFormat),
		PublishAlongside:        req.PublishAlongside,
		Chain:                   chain,
	}

	id := s.jobs.start(r.Context(), jobReq)
	writeJSON(w, http.StatusAccepted, createJobResponse{JobID: string(id)})
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromPath(r.URL.Path, "/jobs/")
	if id == "" {
		writeError(w, http.StatusNotFound, "not_found", "job id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleJobStatus(w, r, id)
	case http.MethodDelete:
		s.handleCancelJob(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET or DELETE")
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request, id domain.JobID) {
	if evt, ok := s.hub.Last(id); ok {
		resp := jobStatusResponse{
			JobID:   string(id),
			Stage:   string(evt.Stage),
			Outcome: string(domain.OutcomeRunning),
			Percent: evt.Percent,
			Message: evt.Message,
			ETASecs: evt.ETASecs,
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if s.history != nil {
		if rec, ok, err := s.history.Get(r.Context(), string(id)); err == nil && ok {
			writeJSON(w, http.StatusOK, jobStatusResponse{
				JobID:         rec.JobID,
				Outcome:       rec.Outcome,
				EntriesTotal:  rec.EntriesTotal,
				BatchesOK:     rec.BatchesOK,
				BatchesFailed: rec.BatchesFailed,
				ErrorMessage:  rec.ErrorMessage,
			})
			return
		}
	}

	writeError(w, http.StatusNotFound, "not_found", "unknown job id")
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, id domain.JobID) {
	if !s.jobs.cancelJob(id) {
		writeError(w, http.StatusNotFound, "not_found", "job is not running")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": string(id), "status": "cancelling"})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		writeJSON(w, http.StatusOK, s.journal.ByKind(kind))
		return
	}

	n := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}
	writeJSON(w, http.StatusOK, s.journal.Recent(n))
}

func (s *Server) handleJournalExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	data, err := s.journal.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="journal.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	recs, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
