package models

import (
	"time"

	"github.com/google/uuid"
)

// ResumeCheckpoint is the per-(user, video) record of the last known playback
// position. Unlike VideoSession.FurthestPos it is last-write-wins: the player
// resumes wherever the viewer actually left off, even after rewinding.
type ResumeCheckpoint struct {
	UserID          uuid.UUID `json:"user_id"`
	VideoID         string    `json:"video_id"`
	CourseID        string    `json:"course_id"`
	Position        float64   `json:"position_seconds"`
	DurationSeconds float64   `json:"video_duration_seconds"`
	ProgressPercent float64   `json:"progress_percent"`
	Completed       bool      `json:"completed"`
	FirstWatchedAt  time.Time `json:"first_watched_at"`
	LastWatchedAt   time.Time `json:"last_watched_at"`
}
