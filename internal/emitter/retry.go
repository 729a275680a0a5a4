package emitter

import (
	"context"
	"log"
	"sync"
	"time"
)

// Retry entry lifecycle: pending → in-flight → (succeeded | retrying |
// abandoned). Abandonment after maxAttempts bounds queue growth when the
// endpoint stays down.

type eventKind int

const (
	kindStart eventKind = iota
	kindProgress
	kindComplete
)

type pendingEvent struct {
	kind     eventKind
	start    StartEvent
	progress ProgressEvent
	complete CompleteEvent
	attempts int
	nextTry  time.Time
}

type retryQueue struct {
	mu          sync.Mutex
	items       []*pendingEvent
	sender      Sender
	base        time.Duration
	maxAttempts int
	capacity    int
	now         func() time.Time
	stopChan    chan struct{}
	stopOnce    sync.Once
}

func newRetryQueue(sender Sender, base time.Duration, maxAttempts, capacity int, now func() time.Time) *retryQueue {
	q := &retryQueue{
		sender:      sender,
		base:        base,
		maxAttempts: maxAttempts,
		capacity:    capacity,
		now:         now,
		stopChan:    make(chan struct{}),
	}
	go q.loop()
	return q
}

// enqueue schedules a failed event for its first retry. When the queue is
// full the oldest entry is dropped: newer telemetry is worth more than old.
func (q *retryQueue) enqueue(ev *pendingEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
		log.Printf("emitter: retry queue full, dropping oldest event")
	}
	ev.nextTry = q.now().Add(q.base)
	q.items = append(q.items, ev)
}

func (q *retryQueue) stop() {
	q.stopOnce.Do(func() { close(q.stopChan) })
}

func (q *retryQueue) loop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopChan:
			return
		case <-ticker.C:
			q.processDue(context.Background())
		}
	}
}

// processDue attempts every entry whose backoff has elapsed. Backoff doubles
// per attempt (base, 2x, 4x) and entries are abandoned after maxAttempts.
func (q *retryQueue) processDue(ctx context.Context) {
	q.mu.Lock()
	now := q.now()
	var due []*pendingEvent
	var rest []*pendingEvent
	for _, ev := range q.items {
		if !ev.nextTry.After(now) {
			due = append(due, ev)
		} else {
			rest = append(rest, ev)
		}
	}
	q.items = rest
	q.mu.Unlock()

	for _, ev := range due {
		ev.attempts++
		if err := q.send(ctx, ev); err == nil {
			continue
		}
		if ev.attempts >= q.maxAttempts {
			log.Printf("emitter: abandoning event after %d attempts", ev.attempts)
			continue
		}
		q.mu.Lock()
		ev.nextTry = q.now().Add(q.base << uint(ev.attempts))
		q.items = append(q.items, ev)
		q.mu.Unlock()
	}
}

func (q *retryQueue) send(ctx context.Context, ev *pendingEvent) error {
	switch ev.kind {
	case kindStart:
		return q.sender.SendStart(ctx, ev.start)
	case kindProgress:
		return q.sender.SendProgress(ctx, ev.progress)
	default:
		return q.sender.SendComplete(ctx, ev.complete)
	}
}

// size is used by tests.
func (q *retryQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
