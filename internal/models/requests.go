package models

import "github.com/google/uuid"

// Ingestion request bodies. Field names are the wire contract consumed by the
// player-side emitter.

type VideoViewRequest struct {
	SessionID       string     `json:"sessionId"`
	VideoID         string     `json:"videoId"`
	CourseID        string     `json:"courseId"`
	LessonID        *string    `json:"lessonId,omitempty"`
	UserID          *uuid.UUID `json:"userId,omitempty"`
	DurationSeconds float64    `json:"videoDurationSeconds"`
	IsPreview       bool       `json:"isPreview,omitempty"`
}

type VideoProgressRequest struct {
	SessionID  string  `json:"sessionId"`
	Position   float64 `json:"currentPositionSeconds"`
	WatchTime  float64 `json:"watchTimeSeconds"`
	PlayCount  int     `json:"playCount"`
	PauseCount int     `json:"pauseCount"`
	SeekCount  int     `json:"seekCount"`

	// Optional metadata so a progress event can recreate a session whose
	// start event was lost.
	VideoID         string  `json:"videoId,omitempty"`
	CourseID        string  `json:"courseId,omitempty"`
	DurationSeconds float64 `json:"videoDurationSeconds,omitempty"`
}

type VideoCompleteRequest struct {
	SessionID string `json:"sessionId"`
}
