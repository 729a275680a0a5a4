// Package emitter is the player-side half of the telemetry pipeline: it
// observes a playback surface, keeps local session state, and emits
// session-start, progress and completion events with store-and-forward retry.
package emitter

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Tracker states. Completed is terminal: no further periodic flushes and the
// completion event can never fire twice.
type state int

const (
	stateIdle state = iota
	stateTracking
	statePaused
	stateCompleted
)

const (
	defaultFlushInterval       = 15 * time.Second
	defaultCompletionThreshold = 90.0
	defaultRetryBase           = 5 * time.Second
	defaultMaxAttempts         = 3
	defaultQueueCapacity       = 32

	// Position jumps beyond this are seeks rather than normal playback.
	seekThresholdSeconds = 2.0

	sendTimeout = 10 * time.Second
)

type Config struct {
	VideoID         string
	CourseID        string
	LessonID        *string
	DurationSeconds float64
	IsPreview       bool

	// Zero values take the defaults above.
	FlushInterval       time.Duration
	CompletionThreshold float64
	RetryBase           time.Duration
	MaxAttempts         int
	QueueCapacity       int
}

// Tracker is one handle per playback surface. Multiple trackers (several
// embedded players on one page) coexist safely; there is no package-level
// state.
type Tracker struct {
	cfg    Config
	sender Sender
	queue  *retryQueue
	now    func() time.Time

	mu              sync.Mutex
	state           state
	sessionID       string
	watchTime       float64
	furthestPos     float64
	lastPos         float64
	playCount       int
	pauseCount      int
	seekCount       int
	completionFired bool
	trackingSince   time.Time
	closed          bool

	stopChan chan struct{}
	stopOnce sync.Once
}

// New validates the config and returns an idle tracker. Nothing is emitted
// until the first RecordPlay.
func New(cfg Config, sender Sender) (*Tracker, error) {
	if sender == nil {
		return nil, errors.New("emitter: sender is required")
	}
	if cfg.VideoID == "" || cfg.CourseID == "" {
		return nil, errors.New("emitter: video and course IDs are required")
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.CompletionThreshold <= 0 {
		cfg.CompletionThreshold = defaultCompletionThreshold
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}

	t := &Tracker{
		cfg:      cfg,
		sender:   sender,
		now:      time.Now,
		state:    stateIdle,
		stopChan: make(chan struct{}),
	}
	t.queue = newRetryQueue(sender, cfg.RetryBase, cfg.MaxAttempts, cfg.QueueCapacity, t.now)
	go t.flushLoop()
	return t, nil
}

// newSessionToken is collision-resistant without a server round trip.
func newSessionToken(now time.Time) string {
	var buf [6]byte
	rand.Read(buf[:])
	return fmt.Sprintf("%d-%s", now.UnixNano(), hex.EncodeToString(buf[:]))
}

// RecordPlay starts tracking. The first play of a session generates the
// session token and fires session-start.
func (t *Tracker) RecordPlay() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.state == stateCompleted {
		return
	}

	t.playCount++
	switch t.state {
	case stateIdle:
		t.sessionID = newSessionToken(t.now())
		t.state = stateTracking
		t.trackingSince = t.now()
		start := StartEvent{
			SessionID:       t.sessionID,
			VideoID:         t.cfg.VideoID,
			CourseID:        t.cfg.CourseID,
			LessonID:        t.cfg.LessonID,
			DurationSeconds: t.cfg.DurationSeconds,
			IsPreview:       t.cfg.IsPreview,
		}
		go t.dispatch(&pendingEvent{kind: kindStart, start: start})
	case statePaused:
		t.state = stateTracking
		t.trackingSince = t.now()
	}
}

// RecordPause folds the elapsed tracked interval into cumulative watch time.
func (t *Tracker) RecordPause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.state != stateTracking {
		return
	}

	t.pauseCount++
	t.foldWatchTimeLocked()
	t.state = statePaused
}

// RecordTimeUpdate advances the playback position: detects seeks, maintains
// the monotonic furthest position, and fires completion exactly once when the
// threshold is crossed.
func (t *Tracker) RecordTimeUpdate(position float64) {
	t.mu.Lock()

	if t.closed || t.state == stateIdle || position < 0 {
		t.mu.Unlock()
		return
	}

	delta := position - t.lastPos
	if delta < 0 {
		delta = -delta
	}
	if delta > seekThresholdSeconds {
		t.seekCount++
	}
	t.lastPos = position
	if position > t.furthestPos {
		t.furthestPos = position
	}

	completed := false
	if !t.completionFired && t.cfg.DurationSeconds > 0 &&
		position/t.cfg.DurationSeconds*100 >= t.cfg.CompletionThreshold {
		// Local guard: even if time updates keep arriving above the
		// threshold, completion fires once.
		t.completionFired = true
		completed = true
		t.foldWatchTimeLocked()
		t.state = stateCompleted
	}

	var progress ProgressEvent
	var sessionID string
	if completed {
		progress = t.progressEventLocked()
		sessionID = t.sessionID
	}
	t.mu.Unlock()

	if completed {
		// Final numbers first, then the completion marker.
		go func() {
			t.dispatch(&pendingEvent{kind: kindProgress, progress: progress})
			t.dispatch(&pendingEvent{kind: kindComplete, complete: CompleteEvent{SessionID: sessionID}})
		}()
	}
}

// RecordEnded marks natural end-of-media, which always completes regardless
// of threshold.
func (t *Tracker) RecordEnded() {
	t.mu.Lock()
	if t.closed || t.state == stateIdle || t.completionFired {
		t.mu.Unlock()
		return
	}
	t.completionFired = true
	t.foldWatchTimeLocked()
	if t.cfg.DurationSeconds > 0 {
		t.lastPos = t.cfg.DurationSeconds
		if t.furthestPos < t.cfg.DurationSeconds {
			t.furthestPos = t.cfg.DurationSeconds
		}
	}
	t.state = stateCompleted
	progress := t.progressEventLocked()
	sessionID := t.sessionID
	t.mu.Unlock()

	go func() {
		t.dispatch(&pendingEvent{kind: kindProgress, progress: progress})
		t.dispatch(&pendingEvent{kind: kindComplete, complete: CompleteEvent{SessionID: sessionID}})
	}()
}

// Close flushes one final progress event synchronously if a session exists,
// then clears all timers. No events are emitted after Close returns.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	var final *ProgressEvent
	if t.sessionID != "" {
		if t.state == stateTracking {
			t.foldWatchTimeLocked()
		}
		ev := t.progressEventLocked()
		final = &ev
	}
	t.mu.Unlock()

	t.stopOnce.Do(func() { close(t.stopChan) })
	t.queue.stop()

	if final != nil {
		if err := t.sender.SendProgress(ctx, *final); err != nil {
			return fmt.Errorf("final flush failed: %w", err)
		}
	}
	return nil
}

// SessionID returns the current session token, empty before the first play.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// foldWatchTimeLocked accrues the current tracked interval. Paused intervals
// never reach here, so watch time excludes them.
func (t *Tracker) foldWatchTimeLocked() {
	if t.state == stateTracking && !t.trackingSince.IsZero() {
		t.watchTime += t.now().Sub(t.trackingSince).Seconds()
	}
	t.trackingSince = time.Time{}
}

// progressEventLocked snapshots the counters. While tracking, the open
// interval is included without being folded.
func (t *Tracker) progressEventLocked() ProgressEvent {
	watch := t.watchTime
	if t.state == stateTracking && !t.trackingSince.IsZero() {
		watch += t.now().Sub(t.trackingSince).Seconds()
	}
	return ProgressEvent{
		SessionID:       t.sessionID,
		Position:        t.lastPos,
		WatchTime:       watch,
		PlayCount:       t.playCount,
		PauseCount:      t.pauseCount,
		SeekCount:       t.seekCount,
		VideoID:         t.cfg.VideoID,
		CourseID:        t.cfg.CourseID,
		DurationSeconds: t.cfg.DurationSeconds,
	}
}

func (t *Tracker) flushLoop() {
	ticker := time.NewTicker(t.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			t.flushOnce()
		}
	}
}

// flushOnce emits a periodic progress event while actively tracking.
func (t *Tracker) flushOnce() {
	t.mu.Lock()
	if t.closed || t.state != stateTracking {
		t.mu.Unlock()
		return
	}
	ev := t.progressEventLocked()
	t.mu.Unlock()

	t.dispatch(&pendingEvent{kind: kindProgress, progress: ev})
}

// dispatch tries delivery once; failures go to the retry queue. Delivery is
// fire-and-forget from the player's point of view but not best-effort.
func (t *Tracker) dispatch(ev *pendingEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := t.queue.send(ctx, ev); err != nil {
		t.queue.enqueue(ev)
	}
}
