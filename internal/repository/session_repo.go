package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"viewtrace-backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

const sessionColumns = `
	session_id, video_id, course_id, lesson_id, user_id, duration_seconds,
	watch_time, furthest_position, play_count, pause_count, seek_count,
	completed, completed_at, created_at, updated_at
`

func scanSession(row pgx.Row) (*models.VideoSession, error) {
	var s models.VideoSession
	err := row.Scan(
		&s.SessionID,
		&s.VideoID,
		&s.CourseID,
		&s.LessonID,
		&s.UserID,
		&s.DurationSeconds,
		&s.WatchTime,
		&s.FurthestPos,
		&s.PlayCount,
		&s.PauseCount,
		&s.SeekCount,
		&s.Completed,
		&s.CompletedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertStart creates the session on the first start event. A duplicate start
// for the same token is a no-op that returns the existing row: ON CONFLICT
// re-asserts the primary key so RETURNING always yields the persisted record.
func (r *SessionRepo) UpsertStart(ctx context.Context, s *models.VideoSession) (*models.VideoSession, error) {
	return scanSession(r.pool.QueryRow(ctx, `
		INSERT INTO video_sessions (session_id, video_id, course_id, lesson_id, user_id, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE
		SET session_id = EXCLUDED.session_id
		RETURNING `+sessionColumns,
		s.SessionID, s.VideoID, s.CourseID, s.LessonID, s.UserID, s.DurationSeconds,
	))
}

func scanSessionWithPrev(row pgx.Row) (*models.VideoSession, float64, error) {
	var s models.VideoSession
	var prevWatchTime float64
	err := row.Scan(
		&s.SessionID,
		&s.VideoID,
		&s.CourseID,
		&s.LessonID,
		&s.UserID,
		&s.DurationSeconds,
		&s.WatchTime,
		&s.FurthestPos,
		&s.PlayCount,
		&s.PauseCount,
		&s.SeekCount,
		&s.Completed,
		&s.CompletedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
		&prevWatchTime,
	)
	if err != nil {
		return nil, 0, err
	}
	return &s, prevWatchTime, nil
}

// ApplyProgress updates an existing session. Furthest position is monotonic
// (GREATEST), watch time and counters are last-write-wins per the client's
// authoritative values. The CTE snapshots the pre-update watch time so the
// caller can attribute the delta to a heatmap segment without a second round
// trip. Returns pgx.ErrNoRows for an unknown session.
func (r *SessionRepo) ApplyProgress(ctx context.Context, sessionID string, p *models.VideoProgressRequest) (*models.VideoSession, float64, error) {
	return scanSessionWithPrev(r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT watch_time FROM video_sessions WHERE session_id = $1
		)
		UPDATE video_sessions
		SET furthest_position = GREATEST(furthest_position, $2),
			watch_time = $3,
			play_count = $4,
			pause_count = $5,
			seek_count = $6,
			updated_at = NOW()
		WHERE session_id = $1
		RETURNING `+sessionColumns+`, COALESCE((SELECT watch_time FROM prev), 0)`,
		sessionID, p.Position, p.WatchTime, p.PlayCount, p.PauseCount, p.SeekCount,
	))
}

// UpsertProgress is ApplyProgress with implicit create: when the start event
// was lost, the session is recreated from the client-supplied metadata in the
// same atomic statement.
func (r *SessionRepo) UpsertProgress(ctx context.Context, s *models.VideoSession, p *models.VideoProgressRequest) (*models.VideoSession, float64, error) {
	return scanSessionWithPrev(r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT watch_time FROM video_sessions WHERE session_id = $1
		)
		INSERT INTO video_sessions (
			session_id, video_id, course_id, user_id, duration_seconds,
			watch_time, furthest_position, play_count, pause_count, seek_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO UPDATE
		SET furthest_position = GREATEST(video_sessions.furthest_position, EXCLUDED.furthest_position),
			watch_time = EXCLUDED.watch_time,
			play_count = EXCLUDED.play_count,
			pause_count = EXCLUDED.pause_count,
			seek_count = EXCLUDED.seek_count,
			updated_at = NOW()
		RETURNING `+sessionColumns+`, COALESCE((SELECT watch_time FROM prev), 0)`,
		s.SessionID, s.VideoID, s.CourseID, s.UserID, s.DurationSeconds,
		p.WatchTime, p.Position, p.PlayCount, p.PauseCount, p.SeekCount,
	))
}

// MarkCompleted sets the completion flag once, irreversibly. COALESCE keeps
// the original completed_at on repeated calls. The second return reports
// whether this call performed the idle-to-completed transition, so callers
// fire completion side effects exactly once per session.
func (r *SessionRepo) MarkCompleted(ctx context.Context, sessionID string) (*models.VideoSession, bool, error) {
	var s models.VideoSession
	var newlyCompleted bool
	err := r.pool.QueryRow(ctx, `
		WITH prior AS (
			SELECT completed FROM video_sessions WHERE session_id = $1
		)
		UPDATE video_sessions
		SET completed = TRUE,
			completed_at = COALESCE(completed_at, NOW()),
			updated_at = NOW()
		WHERE session_id = $1
		RETURNING `+sessionColumns+`, NOT COALESCE((SELECT completed FROM prior), TRUE)`,
		sessionID,
	).Scan(
		&s.SessionID,
		&s.VideoID,
		&s.CourseID,
		&s.LessonID,
		&s.UserID,
		&s.DurationSeconds,
		&s.WatchTime,
		&s.FurthestPos,
		&s.PlayCount,
		&s.PauseCount,
		&s.SeekCount,
		&s.Completed,
		&s.CompletedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
		&newlyCompleted,
	)
	if err != nil {
		return nil, false, err
	}
	return &s, newlyCompleted, nil
}

func (r *SessionRepo) GetByID(ctx context.Context, sessionID string) (*models.VideoSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM video_sessions WHERE session_id = $1`,
		sessionID,
	))
}
