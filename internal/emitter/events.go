package emitter

import "context"

// Event payloads mirror the ingestion API bodies.

type StartEvent struct {
	SessionID       string  `json:"sessionId"`
	VideoID         string  `json:"videoId"`
	CourseID        string  `json:"courseId"`
	LessonID        *string `json:"lessonId,omitempty"`
	DurationSeconds float64 `json:"videoDurationSeconds"`
	IsPreview       bool    `json:"isPreview,omitempty"`
}

type ProgressEvent struct {
	SessionID       string  `json:"sessionId"`
	Position        float64 `json:"currentPositionSeconds"`
	WatchTime       float64 `json:"watchTimeSeconds"`
	PlayCount       int     `json:"playCount"`
	PauseCount      int     `json:"pauseCount"`
	SeekCount       int     `json:"seekCount"`
	VideoID         string  `json:"videoId,omitempty"`
	CourseID        string  `json:"courseId,omitempty"`
	DurationSeconds float64 `json:"videoDurationSeconds,omitempty"`
}

type CompleteEvent struct {
	SessionID string `json:"sessionId"`
}

// Sender delivers events to the ingestion endpoint. Implementations must be
// safe for concurrent use; the tracker calls them from its flush and retry
// goroutines.
type Sender interface {
	SendStart(ctx context.Context, e StartEvent) error
	SendProgress(ctx context.Context, e ProgressEvent) error
	SendComplete(ctx context.Context, e CompleteEvent) error
}
