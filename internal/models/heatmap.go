package models

import "time"

// SegmentWidth is the fixed bucket size for heatmap aggregation, in seconds.
const SegmentWidth = 10

// HeatmapSegment is the aggregate counter for one fixed-width time window
// of a video. Segments are created lazily and only ever grow.
type HeatmapSegment struct {
	VideoID      string    `json:"video_id"`
	SegmentStart int       `json:"segment_start"`
	SegmentEnd   int       `json:"segment_end"`
	ViewCount    int64     `json:"view_count"`
	WatchSeconds float64   `json:"watch_seconds"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SegmentStart returns the start of the bucket containing position.
// Negative positions clamp to the first bucket.
func SegmentStart(position float64) int {
	if position < 0 {
		return 0
	}
	return int(position) / SegmentWidth * SegmentWidth
}

// SegmentEnd returns the exclusive end of the bucket containing position.
func SegmentEnd(position float64) int {
	return SegmentStart(position) + SegmentWidth
}
