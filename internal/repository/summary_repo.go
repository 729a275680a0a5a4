package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"viewtrace-backend/internal/models"
)

type SummaryRepo struct {
	pool *pgxpool.Pool
}

func NewSummaryRepo(pool *pgxpool.Pool) *SummaryRepo {
	return &SummaryRepo{pool: pool}
}

const summaryColumns = `
	video_id, course_id, title, is_preview, total_views, unique_viewers,
	unique_completers, total_watch_time, avg_watch_time, completion_rate,
	avg_play_count, avg_pause_count, avg_seek_count, first_viewed_at,
	last_viewed_at, refreshed_at
`

func scanSummary(row pgx.Row) (*models.VideoSummary, error) {
	var s models.VideoSummary
	err := row.Scan(
		&s.VideoID,
		&s.CourseID,
		&s.Title,
		&s.IsPreview,
		&s.TotalViews,
		&s.UniqueViewers,
		&s.UniqueCompleters,
		&s.TotalWatchTime,
		&s.AvgWatchTime,
		&s.CompletionRate,
		&s.AvgPlayCount,
		&s.AvgPauseCount,
		&s.AvgSeekCount,
		&s.FirstViewedAt,
		&s.LastViewedAt,
		&s.RefreshedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Refresh recomputes the projection from video_sessions in one statement.
// An empty videoID refreshes every video. Anonymous sessions count toward
// unique viewers keyed by session token.
func (r *SummaryRepo) Refresh(ctx context.Context, videoID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO video_summaries (
			video_id, course_id, title, is_preview, total_views, unique_viewers,
			unique_completers, total_watch_time, avg_watch_time, completion_rate,
			avg_play_count, avg_pause_count, avg_seek_count, first_viewed_at,
			last_viewed_at, refreshed_at
		)
		SELECT
			s.video_id,
			MIN(s.course_id),
			COALESCE(MIN(v.title), ''),
			COALESCE(BOOL_OR(v.is_preview), FALSE),
			COUNT(*),
			COUNT(DISTINCT COALESCE(s.user_id::text, s.session_id)),
			COUNT(DISTINCT COALESCE(s.user_id::text, s.session_id)) FILTER (WHERE s.completed),
			COALESCE(SUM(s.watch_time), 0),
			COALESCE(AVG(s.watch_time), 0),
			COUNT(*) FILTER (WHERE s.completed)::float / COUNT(*) * 100,
			COALESCE(AVG(s.play_count), 0),
			COALESCE(AVG(s.pause_count), 0),
			COALESCE(AVG(s.seek_count), 0),
			MIN(s.created_at),
			MAX(s.updated_at),
			NOW()
		FROM video_sessions s
		LEFT JOIN videos v ON v.id = s.video_id
		WHERE ($1 = '' OR s.video_id = $1)
		GROUP BY s.video_id
		ON CONFLICT (video_id) DO UPDATE
		SET course_id = EXCLUDED.course_id,
			title = EXCLUDED.title,
			is_preview = EXCLUDED.is_preview,
			total_views = EXCLUDED.total_views,
			unique_viewers = EXCLUDED.unique_viewers,
			unique_completers = EXCLUDED.unique_completers,
			total_watch_time = EXCLUDED.total_watch_time,
			avg_watch_time = EXCLUDED.avg_watch_time,
			completion_rate = EXCLUDED.completion_rate,
			avg_play_count = EXCLUDED.avg_play_count,
			avg_pause_count = EXCLUDED.avg_pause_count,
			avg_seek_count = EXCLUDED.avg_seek_count,
			first_viewed_at = EXCLUDED.first_viewed_at,
			last_viewed_at = EXCLUDED.last_viewed_at,
			refreshed_at = EXCLUDED.refreshed_at
	`, videoID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *SummaryRepo) GetByVideo(ctx context.Context, videoID string) (*models.VideoSummary, error) {
	return scanSummary(r.pool.QueryRow(ctx,
		`SELECT `+summaryColumns+` FROM video_summaries WHERE video_id = $1`,
		videoID,
	))
}

// ListPopular ranks non-preview videos by total views, then unique viewers.
func (r *SummaryRepo) ListPopular(ctx context.Context, limit int) ([]models.VideoSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+summaryColumns+`
		FROM video_summaries
		WHERE NOT is_preview
		ORDER BY total_views DESC, unique_viewers DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.VideoSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	return summaries, rows.Err()
}

// DashboardStats aggregates across all videos and buckets completion rate
// into the triage tiers. data_as_of is the oldest refresh timestamp so the
// dashboard never overstates freshness.
func (r *SummaryRepo) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_views), 0),
			COALESCE(SUM(total_watch_time), 0),
			COALESCE(AVG(completion_rate), 0),
			COUNT(*) FILTER (WHERE completion_rate > 75),
			COUNT(*) FILTER (WHERE completion_rate >= 50 AND completion_rate <= 75),
			COUNT(*) FILTER (WHERE completion_rate < 50),
			MIN(refreshed_at)
		FROM video_summaries
	`).Scan(
		&stats.TotalVideos,
		&stats.TotalViews,
		&stats.TotalWatchTime,
		&stats.AvgCompletionRate,
		&stats.HighEngagement,
		&stats.MediumEngagement,
		&stats.LowEngagement,
		&stats.DataAsOf,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
