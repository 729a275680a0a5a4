package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"viewtrace-backend/internal/models"
)

type HeatmapRepo struct {
	pool *pgxpool.Pool
}

func NewHeatmapRepo(pool *pgxpool.Pool) *HeatmapRepo {
	return &HeatmapRepo{pool: pool}
}

// Bump increments the segment containing the reported position. The atomic
// upsert makes concurrent bumps from different sessions commutative.
func (r *HeatmapRepo) Bump(ctx context.Context, videoID string, segmentStart, segmentEnd int, watchDelta float64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO video_heatmap_segments (video_id, segment_start, segment_end, view_count, watch_seconds)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (video_id, segment_start) DO UPDATE
		SET view_count = video_heatmap_segments.view_count + 1,
			watch_seconds = video_heatmap_segments.watch_seconds + EXCLUDED.watch_seconds,
			updated_at = NOW()
	`, videoID, segmentStart, segmentEnd, watchDelta)
	return err
}

// ListByVideo returns all segments ordered by start time, ready for the
// dashboard to render directly.
func (r *HeatmapRepo) ListByVideo(ctx context.Context, videoID string) ([]models.HeatmapSegment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT video_id, segment_start, segment_end, view_count, watch_seconds, updated_at
		FROM video_heatmap_segments
		WHERE video_id = $1
		ORDER BY segment_start
	`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	segments := []models.HeatmapSegment{}
	for rows.Next() {
		var s models.HeatmapSegment
		if err := rows.Scan(&s.VideoID, &s.SegmentStart, &s.SegmentEnd, &s.ViewCount, &s.WatchSeconds, &s.UpdatedAt); err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}
