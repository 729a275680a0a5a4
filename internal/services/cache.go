package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"viewtrace-backend/internal/metrics"
)

// invalidateTimeout bounds how long a write path waits on cache invalidation.
// Failures are logged, never propagated: the durable write is the source of
// truth and a stale entry only serves outdated numbers for one TTL period.
const invalidateTimeout = 500 * time.Millisecond

// checkpointTTL is short because checkpoints change on every flush.
const checkpointTTL = time.Minute

// AnalyticsCache is the cache-aside layer over Redis. All read helpers return
// false (a miss) on any cache error so callers fall through to Postgres.
type AnalyticsCache struct {
	redis      *redis.Client
	summaryTTL time.Duration
	popularTTL time.Duration
	metrics    *metrics.Metrics
}

func NewAnalyticsCache(redisClient *redis.Client, summaryTTL, popularTTL time.Duration, m *metrics.Metrics) *AnalyticsCache {
	return &AnalyticsCache{
		redis:      redisClient,
		summaryTTL: summaryTTL,
		popularTTL: popularTTL,
		metrics:    m,
	}
}

func summaryKey(videoID string) string { return "video_summary:" + videoID }
func heatmapKey(videoID string) string { return "video_heatmap:" + videoID }
func checkpointKey(userID uuid.UUID, videoID string) string {
	return fmt.Sprintf("video_resume:%s:%s", userID, videoID)
}

const (
	popularKey   = "popular_videos"
	dashboardKey = "dashboard_stats"
)

// get unmarshals the cached value into dest. Any error counts as a miss.
func (c *AnalyticsCache) get(ctx context.Context, key, entry string, dest interface{}) bool {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache read failed for %s: %v", key, err)
		}
		c.metrics.RecordCacheMiss(entry)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("cache entry %s is corrupt, dropping: %v", key, err)
		c.redis.Del(ctx, key)
		c.metrics.RecordCacheMiss(entry)
		return false
	}
	c.metrics.RecordCacheHit(entry)
	return true
}

// set populates the cache best-effort.
func (c *AnalyticsCache) set(ctx context.Context, key string, val interface{}, ttl time.Duration) {
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("cache write failed for %s: %v", key, err)
	}
}

func (c *AnalyticsCache) GetSummary(ctx context.Context, videoID string, dest interface{}) bool {
	return c.get(ctx, summaryKey(videoID), metrics.EntrySummary, dest)
}

func (c *AnalyticsCache) SetSummary(ctx context.Context, videoID string, val interface{}) {
	c.set(ctx, summaryKey(videoID), val, c.summaryTTL)
}

func (c *AnalyticsCache) GetHeatmap(ctx context.Context, videoID string, dest interface{}) bool {
	return c.get(ctx, heatmapKey(videoID), metrics.EntryHeatmap, dest)
}

func (c *AnalyticsCache) SetHeatmap(ctx context.Context, videoID string, val interface{}) {
	c.set(ctx, heatmapKey(videoID), val, c.summaryTTL)
}

func (c *AnalyticsCache) GetPopular(ctx context.Context, dest interface{}) bool {
	return c.get(ctx, popularKey, metrics.EntryPopular, dest)
}

func (c *AnalyticsCache) SetPopular(ctx context.Context, val interface{}) {
	c.set(ctx, popularKey, val, c.popularTTL)
}

func (c *AnalyticsCache) GetDashboard(ctx context.Context, dest interface{}) bool {
	return c.get(ctx, dashboardKey, metrics.EntryDashboard, dest)
}

func (c *AnalyticsCache) SetDashboard(ctx context.Context, val interface{}) {
	c.set(ctx, dashboardKey, val, c.summaryTTL)
}

func (c *AnalyticsCache) GetCheckpoint(ctx context.Context, userID uuid.UUID, videoID string, dest interface{}) bool {
	return c.get(ctx, checkpointKey(userID, videoID), metrics.EntryCheckpoint, dest)
}

func (c *AnalyticsCache) SetCheckpoint(ctx context.Context, userID uuid.UUID, videoID string, val interface{}) {
	c.set(ctx, checkpointKey(userID, videoID), val, checkpointTTL)
}

// InvalidateVideo drops every read-hot entry touched by a write to videoID.
// Best-effort with a short timeout; failure is logged and swallowed.
func (c *AnalyticsCache) InvalidateVideo(ctx context.Context, videoID string) {
	ctx, cancel := context.WithTimeout(ctx, invalidateTimeout)
	defer cancel()

	keys := []string{summaryKey(videoID), heatmapKey(videoID), popularKey, dashboardKey}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.metrics.RecordInvalidationFailure()
		log.Printf("cache invalidation failed for video %s: %v", videoID, err)
	}
}

// InvalidateCheckpoint drops the cached resume position for one viewer.
func (c *AnalyticsCache) InvalidateCheckpoint(ctx context.Context, userID uuid.UUID, videoID string) {
	ctx, cancel := context.WithTimeout(ctx, invalidateTimeout)
	defer cancel()

	if err := c.redis.Del(ctx, checkpointKey(userID, videoID)).Err(); err != nil {
		c.metrics.RecordInvalidationFailure()
		log.Printf("checkpoint cache invalidation failed for %s/%s: %v", userID, videoID, err)
	}
}

// InvalidateAll is used after a full summary refresh.
func (c *AnalyticsCache) InvalidateAll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, invalidateTimeout)
	defer cancel()

	if err := c.redis.Del(ctx, popularKey, dashboardKey).Err(); err != nil {
		c.metrics.RecordInvalidationFailure()
		log.Printf("cache invalidation failed for aggregate keys: %v", err)
	}
}
