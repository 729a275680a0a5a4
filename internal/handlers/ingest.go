package handlers

import (
	"encoding/json"
	"net/http"

	"viewtrace-backend/internal/middleware"
	"viewtrace-backend/internal/models"
	"viewtrace-backend/internal/services"
)

// IngestHandler accepts the three playback event kinds. Handlers are
// stateless; all cross-request coordination happens in the store's upserts.
// Every response carries the persisted record so clients can detect
// server-side corrections.
type IngestHandler struct {
	aggregator           *services.Aggregator
	flushIntervalSeconds int
	completionThreshold  float64
}

func NewIngestHandler(aggregator *services.Aggregator, flushIntervalSeconds int, completionThreshold float64) *IngestHandler {
	return &IngestHandler{
		aggregator:           aggregator,
		flushIntervalSeconds: flushIntervalSeconds,
		completionThreshold:  completionThreshold,
	}
}

// PlayerConfig tells emitters the server's tracking parameters so deployed
// players stay in step with the server-side completion decision.
func (h *IngestHandler) PlayerConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"flushIntervalSeconds":       h.flushIntervalSeconds,
		"completionThresholdPercent": h.completionThreshold,
	})
}

// VideoView handles session-start. Idempotent by session token: a duplicate
// start returns the existing record with 201, never an error.
func (h *IngestHandler) VideoView(w http.ResponseWriter, r *http.Request) {
	var req models.VideoViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, err := h.aggregator.RecordView(r.Context(), &req, middleware.GetOptionalUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

func (h *IngestHandler) VideoProgress(w http.ResponseWriter, r *http.Request) {
	var req models.VideoProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, err := h.aggregator.RecordProgress(r.Context(), &req, middleware.GetOptionalUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// VideoComplete finalizes a session. Completing twice is harmless.
func (h *IngestHandler) VideoComplete(w http.ResponseWriter, r *http.Request) {
	var req models.VideoCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, err := h.aggregator.RecordCompletion(r.Context(), &req, middleware.GetOptionalUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}
