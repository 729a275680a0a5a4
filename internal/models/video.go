package models

import "time"

// Video is catalog metadata consumed at the interface boundary. The catalog
// service owns this table; analytics only reads duration and the preview flag
// to validate client-supplied values.
type Video struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"course_id"`
	Title           string    `json:"title"`
	DurationSeconds float64   `json:"duration_seconds"`
	IsPreview       bool      `json:"is_preview"`
	CreatedAt       time.Time `json:"created_at"`
}
