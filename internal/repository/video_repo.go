package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"viewtrace-backend/internal/models"
)

// VideoRepo reads catalog metadata owned by the catalog service. Analytics
// never writes this table.
type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

func (r *VideoRepo) GetByID(ctx context.Context, videoID string) (*models.Video, error) {
	var v models.Video
	err := r.pool.QueryRow(ctx, `
		SELECT id, course_id, title, duration_seconds, is_preview, created_at
		FROM videos
		WHERE id = $1
	`, videoID).Scan(&v.ID, &v.CourseID, &v.Title, &v.DurationSeconds, &v.IsPreview, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
