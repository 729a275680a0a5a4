package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"viewtrace-backend/internal/models"
	"viewtrace-backend/internal/services"
)

// Pool consumes summary-refresh jobs from Redis. Multiple ingestion instances
// may run behind a load balancer, so a SetNX lock keeps two workers from
// recomputing the same job.
type Pool struct {
	redis       *redis.Client
	refresher   *services.Refresher
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, refresher *services.Refresher, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		refresher:   refresher,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, services.RefreshQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.RefreshJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		switch job.Type {
		case "summary-refresh":
			jobCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			if _, err := p.refresher.Refresh(jobCtx, job.VideoID); err != nil {
				log.Printf("Worker %d: refresh job %s failed: %v", id, job.ID, err)
			}
			cancel()
		default:
			log.Printf("Worker %d: unknown job type %q", id, job.Type)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}
