package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"frame-monitor/internal/analytics"
	"frame-monitor/internal/clock"
	"frame-monitor/internal/models"

	"github.com/rs/zerolog"
)

type fakeWall struct{ t time.Time }

func (w *fakeWall) now() time.Time { return w.t }

// step advances both clocks by ms and renders one frame.
func step(m *Monitor, src *clock.ManualSource, wall *fakeWall, ms float64) {
	d := time.Duration(ms * float64(time.Millisecond))
	src.Advance(int64(d))
	wall.t = wall.t.Add(d)
	m.OnFrame()
}

func newTestMonitor() (*Monitor, *clock.ManualSource, *fakeWall) {
	src := &clock.ManualSource{}
	wall := &fakeWall{t: time.Unix(1_700_000_000, 0)}
	return New(analytics.DefaultConfig(), src, wall.now), src, wall
}

func TestMonitor_FirstFrameProducesNoSample(t *testing.T) {
	m, _, _ := newTestMonitor()
	m.OnFrame()
	s := m.Snapshot()
	if s.Frames != 0 || s.SkippedFrames != 1 {
		t.Fatalf("first frame: frames=%d skipped=%d", s.Frames, s.SkippedFrames)
	}
	if s.InstantFPS != 0 || s.AvgShortMs != 0 {
		t.Fatalf("first frame must not produce rates: %+v", s)
	}
}

func TestMonitor_DuplicateTickSkipped(t *testing.T) {
	m, src, wall := newTestMonitor()
	m.OnFrame()
	step(m, src, wall, 16)
	m.OnFrame()
	s := m.Snapshot()
	if s.Frames != 1 || s.SkippedFrames != 2 {
		t.Fatalf("frames=%d skipped=%d", s.Frames, s.SkippedFrames)
	}
	if s.InstantFPS != 62.5 {
		t.Fatalf("instant fps = %v", s.InstantFPS)
	}
}

func TestMonitor_DropCycle(t *testing.T) {
	m, src, wall := newTestMonitor()
	m.OnFrame()
	for i := 0; i < 50; i++ {
		step(m, src, wall, 16.6)
	}
	if m.Snapshot().State != models.StateNormal {
		t.Fatalf("steady frames should be normal")
	}
	for i := 0; i < 3; i++ {
		step(m, src, wall, 20)
	}
	if m.Snapshot().State != models.StateDropped {
		t.Fatalf("expected frame drop")
	}
	step(m, src, wall, 16.6)
	s := m.Snapshot()
	if s.State != models.StateNormal || s.ConsecutiveDrops != 0 {
		t.Fatalf("expected recovery, got %v/%d", s.State, s.ConsecutiveDrops)
	}
}

type recordingSink struct {
	mu        sync.Mutex
	published []models.FrameMetrics
	drops     []models.DropEvent
	err       error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, m models.FrameMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, m)
	return s.err
}

func (s *recordingSink) RecordDrop(_ context.Context, e models.DropEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drops = append(s.drops, e)
	return nil
}

func TestRefresher_PublishesChangesOnly(t *testing.T) {
	m, src, wall := newTestMonitor()
	sink := &recordingSink{}
	r := NewRefresher(m.Snapshot, 0, zerolog.Nop(), sink)
	ctx := context.Background()

	r.Tick(ctx)
	if len(sink.published) != 0 {
		t.Fatalf("nothing rendered yet, got %d publishes", len(sink.published))
	}

	m.OnFrame()
	step(m, src, wall, 16)
	r.Tick(ctx)
	r.Tick(ctx)
	if len(sink.published) != 1 {
		t.Fatalf("publishes = %d, want 1", len(sink.published))
	}
}

func TestRefresher_RecordsFinishedDropsOnce(t *testing.T) {
	m, src, wall := newTestMonitor()
	sink := &recordingSink{err: errors.New("sink offline")}
	r := NewRefresher(m.Snapshot, time.Millisecond, zerolog.Nop(), sink)
	ctx := context.Background()

	m.OnFrame()
	for i := 0; i < 4; i++ {
		step(m, src, wall, 40)
	}
	r.Tick(ctx)
	if len(sink.drops) != 0 {
		t.Fatalf("ongoing drop must not be recorded")
	}
	step(m, src, wall, 10)
	r.Tick(ctx)
	step(m, src, wall, 10)
	r.Tick(ctx)
	if len(sink.drops) != 1 {
		t.Fatalf("recorded drops = %d, want 1", len(sink.drops))
	}
	if sink.drops[0].Frames != 4 {
		t.Fatalf("drop frames = %d, want 4", sink.drops[0].Frames)
	}
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	m, _, _ := newTestMonitor()
	r := NewRefresher(m.Snapshot, time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run returned %v", err)
	}
}
