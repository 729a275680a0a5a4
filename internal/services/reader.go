package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"viewtrace-backend/internal/models"
	"viewtrace-backend/internal/repository"
)

const (
	defaultPopularLimit = 10
	maxPopularLimit     = 50
)

// SummaryReader serves dashboard queries cache-first with Postgres fallback.
// Cache failures are treated as misses and never surface to the caller.
type SummaryReader struct {
	summaries   *repository.SummaryRepo
	heatmap     *repository.HeatmapRepo
	checkpoints *repository.CheckpointRepo
	cache       *AnalyticsCache
}

func NewSummaryReader(
	summaries *repository.SummaryRepo,
	heatmap *repository.HeatmapRepo,
	checkpoints *repository.CheckpointRepo,
	cache *AnalyticsCache,
) *SummaryReader {
	return &SummaryReader{
		summaries:   summaries,
		heatmap:     heatmap,
		checkpoints: checkpoints,
		cache:       cache,
	}
}

func (r *SummaryReader) GetVideoSummary(ctx context.Context, videoID string) (*models.VideoSummary, error) {
	var cached models.VideoSummary
	if r.cache.GetSummary(ctx, videoID, &cached) {
		return &cached, nil
	}

	summary, err := r.summaries.GetByVideo(ctx, videoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "No analytics for this video yet"}
		}
		return nil, &DependencyError{Message: "Analytics store unavailable", Err: err}
	}

	r.cache.SetSummary(ctx, videoID, summary)
	return summary, nil
}

// GetPopularVideos caches the full ranking once and slices per request, so
// dashboards asking for different limits share one entry.
func (r *SummaryReader) GetPopularVideos(ctx context.Context, limit int) ([]models.VideoSummary, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	if limit > maxPopularLimit {
		limit = maxPopularLimit
	}

	var ranking []models.VideoSummary
	if !r.cache.GetPopular(ctx, &ranking) {
		var err error
		ranking, err = r.summaries.ListPopular(ctx, maxPopularLimit)
		if err != nil {
			return nil, &DependencyError{Message: "Analytics store unavailable", Err: err}
		}
		r.cache.SetPopular(ctx, ranking)
	}

	if len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking, nil
}

func (r *SummaryReader) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var cached models.DashboardStats
	if r.cache.GetDashboard(ctx, &cached) {
		return &cached, nil
	}

	stats, err := r.summaries.DashboardStats(ctx)
	if err != nil {
		return nil, &DependencyError{Message: "Analytics store unavailable", Err: err}
	}

	r.cache.SetDashboard(ctx, stats)
	return stats, nil
}

// GetHeatmap returns segments already ordered and pre-bucketed, ready to
// render.
func (r *SummaryReader) GetHeatmap(ctx context.Context, videoID string) ([]models.HeatmapSegment, error) {
	var cached []models.HeatmapSegment
	if r.cache.GetHeatmap(ctx, videoID, &cached) {
		return cached, nil
	}

	segments, err := r.heatmap.ListByVideo(ctx, videoID)
	if err != nil {
		return nil, &DependencyError{Message: "Analytics store unavailable", Err: err}
	}

	r.cache.SetHeatmap(ctx, videoID, segments)
	return segments, nil
}

// GetResumeCheckpoint seeds the player's starting position on session start.
func (r *SummaryReader) GetResumeCheckpoint(ctx context.Context, userID uuid.UUID, videoID string) (*models.ResumeCheckpoint, error) {
	var cached models.ResumeCheckpoint
	if r.cache.GetCheckpoint(ctx, userID, videoID, &cached) {
		return &cached, nil
	}

	cp, err := r.checkpoints.Get(ctx, userID, videoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "No saved position for this video"}
		}
		return nil, &DependencyError{Message: "Analytics store unavailable", Err: err}
	}

	r.cache.SetCheckpoint(ctx, userID, videoID, cp)
	return cp, nil
}
