package models

import "time"

// VideoSummary is the read-optimized projection over all sessions of one
// video. The ingestion path never writes it; only the refresh job recomputes
// it from video_sessions.
type VideoSummary struct {
	VideoID          string     `json:"video_id"`
	CourseID         string     `json:"course_id"`
	Title            string     `json:"title,omitempty"`
	IsPreview        bool       `json:"is_preview"`
	TotalViews       int64      `json:"total_views"`
	UniqueViewers    int64      `json:"unique_viewers"`
	UniqueCompleters int64      `json:"unique_completers"`
	TotalWatchTime   float64    `json:"total_watch_time_seconds"`
	AvgWatchTime     float64    `json:"avg_watch_time_seconds"`
	CompletionRate   float64    `json:"completion_rate"`
	AvgPlayCount     float64    `json:"avg_play_count"`
	AvgPauseCount    float64    `json:"avg_pause_count"`
	AvgSeekCount     float64    `json:"avg_seek_count"`
	FirstViewedAt    *time.Time `json:"first_viewed_at,omitempty"`
	LastViewedAt     *time.Time `json:"last_viewed_at,omitempty"`
	RefreshedAt      time.Time  `json:"refreshed_at"`
}

// Completion-rate tiers used by the dashboard for triage.
const (
	EngagementTierHigh   = "high"
	EngagementTierMedium = "medium"
	EngagementTierLow    = "low"
)

// DashboardStats aggregates the summary projection across all videos.
type DashboardStats struct {
	TotalVideos       int64      `json:"total_videos"`
	TotalViews        int64      `json:"total_views"`
	TotalWatchTime    float64    `json:"total_watch_time_seconds"`
	AvgCompletionRate float64    `json:"avg_completion_rate"`
	HighEngagement    int64      `json:"high_engagement_videos"`
	MediumEngagement  int64      `json:"medium_engagement_videos"`
	LowEngagement     int64      `json:"low_engagement_videos"`
	DataAsOf          *time.Time `json:"data_as_of,omitempty"`
}

// EngagementTier buckets a completion rate (percent): high is strictly above
// 75, low strictly below 50, medium everything between.
func EngagementTier(completionRate float64) string {
	switch {
	case completionRate > 75:
		return EngagementTierHigh
	case completionRate >= 50:
		return EngagementTierMedium
	default:
		return EngagementTierLow
	}
}
