package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"viewtrace-backend/internal/metrics"
	"viewtrace-backend/internal/models"
	"viewtrace-backend/internal/repository"
)

// RefreshQueue is the Redis list consumed by the worker pool for on-demand
// refreshes triggered from the admin API.
const RefreshQueue = "queue:summary-refresh"

// Refresher recomputes the summary projection. It is the only writer of
// video_summaries, deliberately isolated from the ingestion path so refresh
// cadence can be tuned independently of event load.
type Refresher struct {
	summaries *repository.SummaryRepo
	cache     *AnalyticsCache
	redis     *redis.Client
	metrics   *metrics.Metrics
}

func NewRefresher(summaries *repository.SummaryRepo, cache *AnalyticsCache, redisClient *redis.Client, m *metrics.Metrics) *Refresher {
	return &Refresher{
		summaries: summaries,
		cache:     cache,
		redis:     redisClient,
		metrics:   m,
	}
}

// Refresh recomputes the projection for one video, or every video when
// videoID is empty, then invalidates the affected cache entries and notifies
// dashboard clients.
func (r *Refresher) Refresh(ctx context.Context, videoID string) (int64, error) {
	start := time.Now()
	refreshed, err := r.summaries.Refresh(ctx, videoID)
	if err != nil {
		return 0, &DependencyError{Message: "Summary refresh failed", Err: err}
	}
	r.metrics.ObserveRefreshDuration(time.Since(start).Seconds())

	if videoID != "" {
		r.cache.InvalidateVideo(ctx, videoID)
	} else {
		r.cache.InvalidateAll(ctx)
	}

	r.publish(ctx, models.WSMessage{
		Type:    "summary_refreshed",
		Payload: models.SummaryRefreshedEvent{VideoID: videoID, VideosRefreshed: refreshed},
	})

	log.Printf("Summary projection refreshed: %d video(s) in %s", refreshed, time.Since(start).Round(time.Millisecond))
	return refreshed, nil
}

func (r *Refresher) publish(ctx context.Context, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := r.redis.Publish(ctx, DashboardChannel, string(data)).Err(); err != nil {
		log.Printf("dashboard publish failed: %v", err)
	}
}

// RefreshScheduler runs a full projection refresh on a fixed interval.
type RefreshScheduler struct {
	refresher *Refresher
	interval  time.Duration
	stopChan  chan struct{}
}

func NewRefreshScheduler(refresher *Refresher, interval time.Duration) *RefreshScheduler {
	return &RefreshScheduler{
		refresher: refresher,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

func (s *RefreshScheduler) Start() {
	go s.loop()
	log.Printf("Summary refresh scheduler started (every %s)", s.interval)
}

func (s *RefreshScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *RefreshScheduler) loop() {
	// Run on startup as well as by interval.
	s.run()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.run()
		}
	}
}

func (s *RefreshScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.refresher.Refresh(ctx, ""); err != nil {
		log.Printf("scheduled summary refresh failed: %v", err)
	}
}
