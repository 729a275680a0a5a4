package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"viewtrace-backend/internal/models"
)

type CheckpointRepo struct {
	pool *pgxpool.Pool
}

func NewCheckpointRepo(pool *pgxpool.Pool) *CheckpointRepo {
	return &CheckpointRepo{pool: pool}
}

// Upsert records the most recent position for (user, video). Position is
// last-write-wins; the completion flag is sticky once set.
func (r *CheckpointRepo) Upsert(ctx context.Context, cp *models.ResumeCheckpoint) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO video_resume_checkpoints (
			user_id, video_id, course_id, position, duration_seconds,
			progress_percent, completed
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, video_id) DO UPDATE
		SET position = EXCLUDED.position,
			duration_seconds = EXCLUDED.duration_seconds,
			progress_percent = EXCLUDED.progress_percent,
			completed = video_resume_checkpoints.completed OR EXCLUDED.completed,
			last_watched_at = NOW()
	`, cp.UserID, cp.VideoID, cp.CourseID, cp.Position, cp.DurationSeconds, cp.ProgressPercent, cp.Completed)
	return err
}

func (r *CheckpointRepo) Get(ctx context.Context, userID uuid.UUID, videoID string) (*models.ResumeCheckpoint, error) {
	var cp models.ResumeCheckpoint
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, video_id, course_id, position, duration_seconds,
			progress_percent, completed, first_watched_at, last_watched_at
		FROM video_resume_checkpoints
		WHERE user_id = $1 AND video_id = $2
	`, userID, videoID).Scan(
		&cp.UserID,
		&cp.VideoID,
		&cp.CourseID,
		&cp.Position,
		&cp.DurationSeconds,
		&cp.ProgressPercent,
		&cp.Completed,
		&cp.FirstWatchedAt,
		&cp.LastWatchedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cp, nil
}
