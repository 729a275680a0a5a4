package models

import (
	"github.com/google/uuid"
)

// RefreshJob is queued on Redis for the worker pool. An empty VideoID means a
// full refresh of the summary projection.
type RefreshJob struct {
	ID      uuid.UUID `json:"id"`
	Type    string    `json:"type"` // "summary-refresh"
	VideoID string    `json:"video_id,omitempty"`
}

// WebSocket message envelope for dashboard live updates.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type SummaryRefreshedEvent struct {
	VideoID         string `json:"video_id,omitempty"`
	VideosRefreshed int64  `json:"videos_refreshed"`
}

type VideoCompletedEvent struct {
	VideoID   string `json:"video_id"`
	SessionID string `json:"session_id"`
}

// API Error response

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
