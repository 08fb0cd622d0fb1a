package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lei/jenkins-gateway/internal/gateway"
	"github.com/lei/jenkins-gateway/internal/service"
	"github.com/lei/jenkins-gateway/pkg/logger"
)

// Handlers contains HTTP handler functions
type Handlers struct {
	service *service.Service
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc *service.Service) *Handlers {
	return &Handlers{service: svc}
}

// Health handles health check requests
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// jobParam extracts the job name path parameter. Folder jobs arrive
// with their '/' separators percent-encoded.
func jobParam(r *http.Request) string {
	raw := chi.URLParam(r, "job")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// buildNumberParam parses the {number} path parameter.
func buildNumberParam(r *http.Request) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
	return n, err == nil
}

// optionalBuildNumber parses the build_number query parameter.
func optionalBuildNumber(r *http.Request) (*int64, bool) {
	raw := r.URL.Query().Get("build_number")
	if raw == "" {
		return nil, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return &n, true
}

// TriggerJob handles POST /v1/jobs/{job}/trigger
func (h *Handlers) TriggerJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	job := jobParam(r)

	var req struct {
		Parameters map[string]string `json:"parameters"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if log != nil {
				log.Warn("invalid request body", "error", err)
			}
			respondError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.service.TriggerJob(r.Context(), job, req.Parameters)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// JobParameters handles GET /v1/jobs/{job}/parameters
func (h *Handlers) JobParameters(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.JobParameters(r.Context(), jobParam(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// JobStatus handles GET /v1/jobs/{job}/status
func (h *Handlers) JobStatus(w http.ResponseWriter, r *http.Request) {
	number, ok := optionalBuildNumber(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid build_number")
		return
	}

	result, err := h.service.JobStatus(r.Context(), jobParam(r), number)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// BuildLog handles GET /v1/jobs/{job}/builds/{number}/log
func (h *Handlers) BuildLog(w http.ResponseWriter, r *http.Request) {
	number, ok := buildNumberParam(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid build number")
		return
	}

	q := r.URL.Query()
	startLine, _ := strconv.Atoi(q.Get("start_line"))
	maxLines, _ := strconv.Atoi(q.Get("max_lines"))
	fromEnd := q.Get("from_end") == "true" || q.Get("from_end") == "1"

	result, err := h.service.BuildLog(r.Context(), jobParam(r), number, startLine, maxLines, fromEnd)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CancelBuild handles POST /v1/jobs/{job}/builds/{number}/cancel
func (h *Handlers) CancelBuild(w http.ResponseWriter, r *http.Request) {
	number, ok := buildNumberParam(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid build number")
		return
	}

	result, err := h.service.CancelBuild(r.Context(), jobParam(r), number)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListArtifacts handles GET /v1/jobs/{job}/artifacts
func (h *Handlers) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	number, ok := optionalBuildNumber(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid build_number")
		return
	}

	result, err := h.service.ListArtifacts(r.Context(), jobParam(r), number)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// FetchArtifact handles GET /v1/jobs/{job}/builds/{number}/artifacts/*
func (h *Handlers) FetchArtifact(w http.ResponseWriter, r *http.Request) {
	number, ok := buildNumberParam(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid build number")
		return
	}

	artifactPath := chi.URLParam(r, "*")
	if artifactPath == "" {
		respondError(w, r, http.StatusBadRequest, "missing artifact path")
		return
	}

	result, err := h.service.FetchArtifact(r.Context(), jobParam(r), number, artifactPath)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListTriggered handles GET /v1/triggered
func (h *Handlers) ListTriggered(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListTriggeredJobs(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ClearTriggered handles DELETE /v1/triggered
func (h *Handlers) ClearTriggered(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ClearTriggeredJobs(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// respondJSON writes a success payload
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes the uniform failure payload with logging
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	log := logger.FromContext(r.Context())
	requestID := GetRequestID(r.Context())

	if log != nil {
		log.Error("returning error response",
			"status", status,
			"message", message,
			"request_id", requestID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&service.ErrorResult{Error: true, Message: message})
}

// handleServiceError maps operation errors to HTTP statuses. The body
// is always the uniform failure payload with the original message.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	if log != nil {
		log.Error("service error occurred", "error", err.Error())
	}

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, gateway.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, gateway.ErrUnavailable):
		status = http.StatusBadGateway
	default:
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			if gwErr.Code >= 400 && gwErr.Code < 500 {
				status = gwErr.Code
			}
		} else {
			// Not a server-side fault: validation errors and the like.
			status = http.StatusBadRequest
		}
	}

	respondError(w, r, status, err.Error())
}
