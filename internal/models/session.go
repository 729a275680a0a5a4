package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoSession is one continuous watch session. SessionID is the
// client-generated token used as the idempotency key for every write
// belonging to the session.
type VideoSession struct {
	SessionID       string     `json:"session_id"`
	VideoID         string     `json:"video_id"`
	CourseID        string     `json:"course_id"`
	LessonID        *string    `json:"lesson_id,omitempty"`
	UserID          *uuid.UUID `json:"user_id,omitempty"`
	DurationSeconds float64    `json:"video_duration_seconds"`
	WatchTime       float64    `json:"watch_time_seconds"`
	FurthestPos     float64    `json:"furthest_position_seconds"`
	PlayCount       int        `json:"play_count"`
	PauseCount      int        `json:"pause_count"`
	SeekCount       int        `json:"seek_count"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CompletionPercentage is derived from furthest position, not watch time:
// seeking past content still counts toward completion.
func (s *VideoSession) CompletionPercentage() float64 {
	if s.DurationSeconds <= 0 {
		return 0
	}
	return s.FurthestPos / s.DurationSeconds * 100
}
