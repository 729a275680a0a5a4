package emitter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	mu        sync.Mutex
	failnext  int
	starts    []StartEvent
	progress  []ProgressEvent
	completes []CompleteEvent
}

func (s *stubSender) SendStart(_ context.Context, e StartEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failnextLocked() {
		return errors.New("stub failure")
	}
	s.starts = append(s.starts, e)
	return nil
}

func (s *stubSender) SendProgress(_ context.Context, e ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failnextLocked() {
		return errors.New("stub failure")
	}
	s.progress = append(s.progress, e)
	return nil
}

func (s *stubSender) SendComplete(_ context.Context, e CompleteEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failnextLocked() {
		return errors.New("stub failure")
	}
	s.completes = append(s.completes, e)
	return nil
}

func (s *stubSender) failnextLocked() bool {
	if s.failnext > 0 {
		s.failnext--
		return true
	}
	return false
}

func (s *stubSender) counts() (starts, progress, completes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.starts), len(s.progress), len(s.completes)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestTracker(t *testing.T, sender *stubSender, clk *fakeClock, cfg Config) *Tracker {
	t.Helper()
	if cfg.VideoID == "" {
		cfg.VideoID = "video-1"
	}
	if cfg.CourseID == "" {
		cfg.CourseID = "course-1"
	}
	if cfg.DurationSeconds == 0 {
		cfg.DurationSeconds = 100
	}
	// Long flush interval so the periodic goroutine stays quiet; tests
	// drive flushOnce directly.
	cfg.FlushInterval = time.Hour

	tr, err := New(cfg, sender)
	require.NoError(t, err)
	if clk != nil {
		tr.now = clk.Now
		tr.queue.now = clk.Now
	}
	t.Cleanup(func() { tr.Close(context.Background()) })
	return tr
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{VideoID: "v", CourseID: "c"}, nil)
	assert.Error(t, err)

	_, err = New(Config{CourseID: "c"}, &stubSender{})
	assert.Error(t, err)

	_, err = New(Config{VideoID: "v"}, &stubSender{})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	tr, err := New(Config{VideoID: "v", CourseID: "c", DurationSeconds: 100}, &stubSender{})
	require.NoError(t, err)
	defer tr.Close(context.Background())

	assert.Equal(t, defaultFlushInterval, tr.cfg.FlushInterval)
	assert.Equal(t, defaultCompletionThreshold, tr.cfg.CompletionThreshold)
	assert.Equal(t, defaultMaxAttempts, tr.cfg.MaxAttempts)
	assert.Equal(t, defaultQueueCapacity, tr.cfg.QueueCapacity)
}

func TestRecordPlay_StartsSession(t *testing.T) {
	sender := &stubSender{}
	tr := newTestTracker(t, sender, nil, Config{})

	assert.Empty(t, tr.SessionID())
	tr.RecordPlay()
	token := tr.SessionID()
	assert.NotEmpty(t, token)

	assert.Eventually(t, func() bool {
		s, _, _ := sender.counts()
		return s == 1
	}, time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	start := sender.starts[0]
	sender.mu.Unlock()
	assert.Equal(t, token, start.SessionID)
	assert.Equal(t, "video-1", start.VideoID)
	assert.Equal(t, "course-1", start.CourseID)
	assert.Equal(t, 100.0, start.DurationSeconds)
}

func TestRecordPlay_ResumeDoesNotRestartSession(t *testing.T) {
	sender := &stubSender{}
	tr := newTestTracker(t, sender, nil, Config{})

	tr.RecordPlay()
	token := tr.SessionID()
	tr.RecordPause()
	tr.RecordPlay()

	assert.Equal(t, token, tr.SessionID())
	assert.Equal(t, 2, tr.playCount)
	assert.Equal(t, 1, tr.pauseCount)

	// Only one session-start even after resume.
	assert.Eventually(t, func() bool {
		s, _, _ := sender.counts()
		return s == 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	s, _, _ := sender.counts()
	assert.Equal(t, 1, s)
}

func TestSeekDetection(t *testing.T) {
	sender := &stubSender{}
	tr := newTestTracker(t, sender, nil, Config{})

	tr.RecordPlay()
	tr.RecordTimeUpdate(1)
	tr.RecordTimeUpdate(2)
	tr.RecordTimeUpdate(3)
	assert.Equal(t, 0, tr.seekCount)

	tr.RecordTimeUpdate(50) // forward seek
	assert.Equal(t, 1, tr.seekCount)

	tr.RecordTimeUpdate(10) // backward seek
	assert.Equal(t, 2, tr.seekCount)

	assert.Equal(t, 50.0, tr.furthestPos, "furthest position never regresses")
	assert.Equal(t, 10.0, tr.lastPos)
}

func TestCompletionFiresOnce(t *testing.T) {
	sender := &stubSender{}
	tr := newTestTracker(t, sender, nil, Config{DurationSeconds: 100})

	tr.RecordPlay()
	tr.RecordTimeUpdate(89.9)
	time.Sleep(50 * time.Millisecond)
	_, _, c := sender.counts()
	assert.Equal(t, 0, c, "below threshold must not complete")

	tr.RecordTimeUpdate(90) // exactly the threshold completes
	assert.Eventually(t, func() bool {
		_, p, c := sender.counts()
		return p == 1 && c == 1
	}, time.Second, 10*time.Millisecond)

	tr.RecordTimeUpdate(95)
	tr.RecordEnded()
	time.Sleep(50 * time.Millisecond)
	_, _, c = sender.counts()
	assert.Equal(t, 1, c, "completion must fire exactly once")
}

func TestRecordEnded_CompletesRegardlessOfThreshold(t *testing.T) {
	sender := &stubSender{}
	tr := newTestTracker(t, sender, nil, Config{DurationSeconds: 100})

	tr.RecordPlay()
	tr.RecordTimeUpdate(40)
	tr.RecordEnded()

	assert.Eventually(t, func() bool {
		_, p, c := sender.counts()
		return p == 1 && c == 1
	}, time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	final := sender.progress[0]
	sender.mu.Unlock()
	assert.Equal(t, 100.0, final.Position, "ended snaps position to duration")
}

func TestWatchTimeExcludesPauses(t *testing.T) {
	sender := &stubSender{}
	clk := newFakeClock()
	tr := newTestTracker(t, sender, clk, Config{})

	tr.RecordPlay()
	clk.Advance(10 * time.Second)
	tr.RecordPause()

	clk.Advance(30 * time.Second) // paused time must not count
	tr.RecordPlay()
	clk.Advance(5 * time.Second)
	tr.RecordPause()

	assert.InDelta(t, 15.0, tr.watchTime, 0.001)
}

func TestFlushOnce_OnlyWhileTracking(t *testing.T) {
	sender := &stubSender{}
	clk := newFakeClock()
	tr := newTestTracker(t, sender, clk, Config{})

	tr.flushOnce()
	_, p, _ := sender.counts()
	assert.Equal(t, 0, p, "no flush before play")

	tr.RecordPlay()
	clk.Advance(15 * time.Second)
	tr.RecordTimeUpdate(14)
	tr.flushOnce()

	_, p, _ = sender.counts()
	require.Equal(t, 1, p)
	sender.mu.Lock()
	ev := sender.progress[0]
	sender.mu.Unlock()
	assert.Equal(t, tr.SessionID(), ev.SessionID)
	assert.Equal(t, 14.0, ev.Position)
	assert.InDelta(t, 15.0, ev.WatchTime, 0.001, "flush includes the open interval")

	tr.RecordPause()
	tr.flushOnce()
	_, p, _ = sender.counts()
	assert.Equal(t, 1, p, "no flush while paused")
}

func TestClose_FinalFlushAndIdempotent(t *testing.T) {
	sender := &stubSender{}
	clk := newFakeClock()
	tr := newTestTracker(t, sender, clk, Config{})

	tr.RecordPlay()
	clk.Advance(8 * time.Second)
	tr.RecordTimeUpdate(7)

	require.NoError(t, tr.Close(context.Background()))
	_, p, _ := sender.counts()
	require.Equal(t, 1, p)
	sender.mu.Lock()
	final := sender.progress[0]
	sender.mu.Unlock()
	assert.InDelta(t, 8.0, final.WatchTime, 0.001)

	require.NoError(t, tr.Close(context.Background()))
	_, p, _ = sender.counts()
	assert.Equal(t, 1, p, "second Close must not flush again")

	tr.RecordPlay()
	tr.RecordTimeUpdate(20)
	assert.Equal(t, 7.0, tr.lastPos, "no state changes after Close")
}

func TestClose_NoSessionNoFlush(t *testing.T) {
	sender := &stubSender{}
	tr := newTestTracker(t, sender, nil, Config{})

	require.NoError(t, tr.Close(context.Background()))
	s, p, c := sender.counts()
	assert.Zero(t, s+p+c)
}

func TestFailedDispatchLandsInRetryQueue(t *testing.T) {
	sender := &stubSender{failnext: 1}
	tr := newTestTracker(t, sender, nil, Config{})
	tr.queue.stop() // keep the retry loop from draining it mid-test

	tr.RecordPlay()
	assert.Eventually(t, func() bool {
		return tr.queue.size() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSessionTokensAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	now := time.Now()
	for i := 0; i < 100; i++ {
		tok := newSessionToken(now)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}
