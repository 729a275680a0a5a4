package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"viewtrace-backend/internal/metrics"
	"viewtrace-backend/internal/models"
	"viewtrace-backend/internal/repository"
)

// DashboardChannel carries live dashboard notifications over Redis Pub/Sub.
const DashboardChannel = "dashboard_updates"

// Aggregator owns the write path: session upserts, completion decisions,
// checkpoint maintenance and heatmap accumulation. It is the only component
// that writes these tables.
type Aggregator struct {
	sessions    *repository.SessionRepo
	heatmap     *repository.HeatmapRepo
	checkpoints *repository.CheckpointRepo
	videos      *repository.VideoRepo
	cache       *AnalyticsCache
	redis       *redis.Client
	metrics     *metrics.Metrics
	threshold   float64
}

func NewAggregator(
	sessions *repository.SessionRepo,
	heatmap *repository.HeatmapRepo,
	checkpoints *repository.CheckpointRepo,
	videos *repository.VideoRepo,
	cache *AnalyticsCache,
	redisClient *redis.Client,
	m *metrics.Metrics,
	completionThreshold float64,
) *Aggregator {
	return &Aggregator{
		sessions:    sessions,
		heatmap:     heatmap,
		checkpoints: checkpoints,
		videos:      videos,
		cache:       cache,
		redis:       redisClient,
		metrics:     m,
		threshold:   completionThreshold,
	}
}

// completionReached is the single authoritative completion test. The
// comparison must be >= so a session at exactly the threshold completes.
func completionReached(s *models.VideoSession, threshold float64) bool {
	if s.DurationSeconds <= 0 {
		return false
	}
	return s.CompletionPercentage() >= threshold
}

// RecordView creates the session on its first start event. A duplicate start
// for the same token returns the existing record unchanged.
func (a *Aggregator) RecordView(ctx context.Context, req *models.VideoViewRequest, userID *uuid.UUID) (*models.VideoSession, error) {
	fields := make(map[string]string)
	if strings.TrimSpace(req.SessionID) == "" {
		fields["sessionId"] = "Session ID is required"
	}
	if strings.TrimSpace(req.VideoID) == "" {
		fields["videoId"] = "Video ID is required"
	}
	if strings.TrimSpace(req.CourseID) == "" {
		fields["courseId"] = "Course ID is required"
	}
	if req.DurationSeconds < 0 {
		fields["videoDurationSeconds"] = "Duration must not be negative"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	// The authenticated identity wins; the body's userId only covers clients
	// that track on behalf of a user without a bearer token.
	if userID == nil {
		userID = req.UserID
	}

	duration := req.DurationSeconds
	if meta, err := a.videos.GetByID(ctx, req.VideoID); err == nil {
		// Catalog duration is authoritative when present.
		if meta.DurationSeconds > 0 {
			duration = meta.DurationSeconds
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("catalog lookup failed for video %s, using client duration: %v", req.VideoID, err)
	}

	session := &models.VideoSession{
		SessionID:       req.SessionID,
		VideoID:         req.VideoID,
		CourseID:        req.CourseID,
		LessonID:        req.LessonID,
		UserID:          userID,
		DurationSeconds: duration,
	}

	persisted, err := a.sessions.UpsertStart(ctx, session)
	if err != nil {
		return nil, &DependencyError{Message: "Analytics store unavailable", Err: err}
	}

	a.metrics.RecordEvent(metrics.EventView)
	return persisted, nil
}

// RecordProgress applies one progress event: session upsert, authoritative
// completion decision, resume checkpoint, heatmap bump, cache invalidation.
func (a *Aggregator) RecordProgress(ctx context.Context, req *models.VideoProgressRequest, userID *uuid.UUID) (*models.VideoSession, error) {
	fields := make(map[string]string)
	if strings.TrimSpace(req.SessionID) == "" {
		fields["sessionId"] = "Session ID is required"
	}
	if req.Position < 0 {
		fields["currentPositionSeconds"] = "Position must not be negative"
	}
	if req.WatchTime < 0 {
		fields["watchTimeSeconds"] = "Watch time must not be negative"
	}
	if req.PlayCount < 0 || req.PauseCount < 0 || req.SeekCount < 0 {
		fields["counters"] = "Counters must not be negative"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	var (
		session       *models.VideoSession
		prevWatchTime float64
		err           error
	)
	if req.VideoID != "" && req.CourseID != "" {
		// Metadata present: tolerate a lost start event by recreating the
		// session in the same atomic upsert.
		stub := &models.VideoSession{
			SessionID:       req.SessionID,
			VideoID:         req.VideoID,
			CourseID:        req.CourseID,
			UserID:          userID,
			DurationSeconds: req.DurationSeconds,
		}
		session, prevWatchTime, err = a.sessions.UpsertProgress(ctx, stub, req)
	} else {
		session, prevWatchTime, err = a.sessions.ApplyProgress(ctx, req.SessionID, req)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Session not found"}
		}
		return nil, &DependencyError{Message: "Analytics store unavailable", Err: err}
	}

	if !session.Completed && completionReached(session, a.threshold) {
		session, err = a.completeSession(ctx, session.SessionID)
		if err != nil {
			return nil, &DependencyError{Message: "Analytics store unavailable", Err: err}
		}
	}

	if userID != nil {
		a.upsertCheckpoint(ctx, *userID, session, req.Position)
	}

	watchDelta := req.WatchTime - prevWatchTime
	if watchDelta < 0 {
		// Out-of-order or retried event; nothing new to attribute.
		watchDelta = 0
	}
	if err := a.heatmap.Bump(ctx, session.VideoID, models.SegmentStart(req.Position), models.SegmentEnd(req.Position), watchDelta); err != nil {
		return nil, &DependencyError{Message: "Analytics store unavailable", Err: err}
	}

	a.cache.InvalidateVideo(ctx, session.VideoID)
	a.metrics.RecordEvent(metrics.EventProgress)
	return session, nil
}

// RecordCompletion finalizes the session idempotently. Client-side completion
// detection is advisory; the flag here is set on the existing record without
// re-deriving positions.
func (a *Aggregator) RecordCompletion(ctx context.Context, req *models.VideoCompleteRequest, userID *uuid.UUID) (*models.VideoSession, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, &ValidationError{Fields: map[string]string{"sessionId": "Session ID is required"}}
	}

	session, err := a.completeSession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Session not found"}
		}
		return nil, &DependencyError{Message: "Analytics store unavailable", Err: err}
	}

	if userID != nil {
		a.upsertCheckpoint(ctx, *userID, session, session.FurthestPos)
	}

	a.cache.InvalidateVideo(ctx, session.VideoID)
	a.metrics.RecordEvent(metrics.EventComplete)
	return session, nil
}

// completeSession marks the session completed and fires the completion side
// effects (metric, dashboard notification) only on the first transition, no
// matter which ingestion path got there first.
func (a *Aggregator) completeSession(ctx context.Context, sessionID string) (*models.VideoSession, error) {
	session, newlyCompleted, err := a.sessions.MarkCompleted(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if newlyCompleted {
		a.metrics.RecordCompletion()
		a.publishDashboard(ctx, models.WSMessage{
			Type:    "video_completed",
			Payload: models.VideoCompletedEvent{VideoID: session.VideoID, SessionID: session.SessionID},
		})
	}
	return session, nil
}

// upsertCheckpoint records the viewer's latest position. A checkpoint failure
// is logged but does not fail the event: the session row already holds the
// durable truth.
func (a *Aggregator) upsertCheckpoint(ctx context.Context, userID uuid.UUID, session *models.VideoSession, position float64) {
	progress := 0.0
	if session.DurationSeconds > 0 {
		progress = position / session.DurationSeconds * 100
	}
	cp := &models.ResumeCheckpoint{
		UserID:          userID,
		VideoID:         session.VideoID,
		CourseID:        session.CourseID,
		Position:        position,
		DurationSeconds: session.DurationSeconds,
		ProgressPercent: progress,
		Completed:       session.Completed,
	}
	if err := a.checkpoints.Upsert(ctx, cp); err != nil {
		log.Printf("checkpoint upsert failed for %s/%s: %v", userID, session.VideoID, err)
		return
	}
	a.cache.InvalidateCheckpoint(ctx, userID, session.VideoID)
}

func (a *Aggregator) publishDashboard(ctx context.Context, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := a.redis.Publish(ctx, DashboardChannel, string(data)).Err(); err != nil {
		log.Printf("dashboard publish failed: %v", err)
	}
}
