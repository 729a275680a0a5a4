package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"viewtrace-backend/internal/middleware"
	"viewtrace-backend/internal/models"
	"viewtrace-backend/internal/services"
)

// AnalyticsHandler serves dashboard reads and the on-demand refresh trigger.
type AnalyticsHandler struct {
	reader *services.SummaryReader
	redis  *redis.Client
}

func NewAnalyticsHandler(reader *services.SummaryReader, redisClient *redis.Client) *AnalyticsHandler {
	return &AnalyticsHandler{reader: reader, redis: redisClient}
}

func (h *AnalyticsHandler) VideoSummary(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Video ID is required", r))
		return
	}

	summary, err := h.reader.GetVideoSummary(r.Context(), videoID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary":         summary,
		"engagement_tier": models.EngagementTier(summary.CompletionRate),
		"data_as_of":      summary.RefreshedAt,
	})
}

func (h *AnalyticsHandler) PopularVideos(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be a positive integer", r))
			return
		}
		limit = n
	}

	videos, err := h.reader.GetPopularVideos(r.Context(), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"videos": videos})
}

func (h *AnalyticsHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Video ID is required", r))
		return
	}

	segments, err := h.reader.GetHeatmap(r.Context(), videoID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"video_id": videoID,
		"segments": segments,
	})
}

func (h *AnalyticsHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reader.GetDashboardStats(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// Resume returns the viewer's saved position so the player can seed playback.
func (h *AnalyticsHandler) Resume(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Video ID is required", r))
		return
	}

	checkpoint, err := h.reader.GetResumeCheckpoint(r.Context(), userID, videoID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"checkpoint": checkpoint})
}

// TriggerRefresh enqueues a summary-refresh job for the worker pool instead
// of recomputing on the request goroutine.
func (h *AnalyticsHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VideoID string `json:"video_id"`
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
	}

	job := models.RefreshJob{
		ID:      uuid.New(),
		Type:    "summary-refresh",
		VideoID: req.VideoID,
	}
	data, _ := json.Marshal(job)

	if err := h.redis.RPush(r.Context(), services.RefreshQueue, data).Err(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("SERVICE_UNAVAILABLE", "Failed to enqueue refresh", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Refresh queued",
		"job_id":  job.ID,
	})
}
