package analytics

import (
	"math"
	"sync/atomic"
	"time"

	"frame-monitor/internal/models"
)

const defaultMaxDropEvents = 100

type Config struct {
	ShortWindow        time.Duration
	LongWindow         time.Duration
	ThresholdFPS       float64
	RequiredDrops      int
	SlowFrameTargetFPS float64
	SlowFrameLimit     int
	MaxDropEvents      int
}

func DefaultConfig() Config {
	return Config{
		ShortWindow:        10 * time.Second,
		LongWindow:         30 * time.Second,
		ThresholdFPS:       60,
		RequiredDrops:      3,
		SlowFrameTargetFPS: 60,
		SlowFrameLimit:     5,
		MaxDropEvents:      defaultMaxDropEvents,
	}
}

// Analyzer turns frame times into published FrameMetrics.
//
// Observe and Skip must be called from the render loop only. GetSnapshot,
// GetCurrentStats and GetRecentDrops read the last published record and are
// safe from any goroutine.
type Analyzer struct {
	cfg Config

	short    *WindowedAverager
	long     *WindowedAverager
	detector *DropDetector
	slow     *DropDetector

	seq        uint64
	frames     uint64
	skipped    uint64
	dropped    uint64
	dropEvents uint64
	timeInDrop time.Duration
	runMinFPS  float64
	current    models.DropEvent
	drops      []models.DropEvent
	last       models.FrameMetrics

	latest atomic.Pointer[models.FrameMetrics]
}

func NewAnalyzer(cfg Config, now func() time.Time) *Analyzer {
	if cfg.MaxDropEvents <= 0 {
		cfg.MaxDropEvents = defaultMaxDropEvents
	}
	return &Analyzer{
		cfg:      cfg,
		short:    NewWindowedAverager(cfg.ShortWindow, now),
		long:     NewWindowedAverager(cfg.LongWindow, now),
		detector: NewDropDetector(cfg.ThresholdFPS, cfg.RequiredDrops),
		slow:     NewDropDetector(cfg.SlowFrameTargetFPS, cfg.SlowFrameLimit),
	}
}

// Observe records one rendered frame that took frameMs milliseconds and ended at t.
// Non-positive frame times are counted as skipped.
func (a *Analyzer) Observe(frameMs float64, t time.Time) models.FrameMetrics {
	if !(frameMs > 0) || math.IsInf(frameMs, 0) {
		return a.Skip(t)
	}

	a.short.AddSampleAt(t, frameMs)
	a.long.AddSampleAt(t, frameMs)
	a.frames++

	fps := 1000 / frameMs
	prev := a.detector.State()
	state := a.detector.Update(fps)
	a.slow.Update(fps)

	// runMinFPS covers the whole below-threshold run, including the frames
	// that led up to the state change.
	switch n := a.detector.ConsecutiveDrops(); {
	case n == 0:
		a.runMinFPS = 0
	case n == 1:
		a.runMinFPS = fps
		a.dropped++
	default:
		a.runMinFPS = min(a.runMinFPS, fps)
		a.dropped++
	}

	switch {
	case prev == models.StateNormal && state == models.StateDropped:
		a.dropEvents++
		a.current = models.DropEvent{StartedAt: t, Frames: a.detector.ConsecutiveDrops(), MinFPS: a.runMinFPS}
	case state == models.StateDropped:
		a.current.Frames++
		a.current.MinFPS = a.runMinFPS
	case prev == models.StateDropped && state == models.StateNormal:
		recovered := t
		a.current.RecoveredAt = &recovered
		a.timeInDrop += a.current.Duration(t)
		a.appendDrop(a.current)
		a.current = models.DropEvent{}
	}

	shortMs := a.short.AverageAt(t)
	longMs := a.long.AverageAt(t)
	a.publish(models.FrameMetrics{
		UpdatedAt:        t,
		FrameTimeMs:      frameMs,
		InstantFPS:       fps,
		AvgShortMs:       shortMs,
		AvgShortFPS:      RateFromFrameTime(shortMs),
		AvgLongMs:        longMs,
		AvgLongFPS:       RateFromFrameTime(longMs),
		State:            state,
		ConsecutiveDrops: a.detector.ConsecutiveDrops(),
		SlowFrameAlert:   a.slow.State() == models.StateDropped,
		SlowFrameCount:   a.slow.ConsecutiveDrops(),
	})
	return a.last
}

// Skip counts a callback that produced no frame time, keeping the last rates.
func (a *Analyzer) Skip(t time.Time) models.FrameMetrics {
	a.skipped++
	m := a.last
	m.UpdatedAt = t
	a.publish(m)
	return a.last
}

func (a *Analyzer) publish(m models.FrameMetrics) {
	a.seq++
	m.Sequence = a.seq
	m.Frames = a.frames
	m.SkippedFrames = a.skipped
	m.DroppedFrames = a.dropped
	m.DropEvents = a.dropEvents
	m.TimeInDrop = a.timeInDrop
	m.CurrentDrop = a.current
	m.RecentDrops = a.drops
	a.last = m
	a.latest.Store(&m)
}

// appendDrop replaces the history slice instead of mutating it, since readers
// may still hold the previous one.
func (a *Analyzer) appendDrop(e models.DropEvent) {
	keep := a.drops
	if len(keep) >= a.cfg.MaxDropEvents {
		keep = keep[len(keep)-a.cfg.MaxDropEvents+1:]
	}
	next := make([]models.DropEvent, len(keep), len(keep)+1)
	copy(next, keep)
	a.drops = append(next, e)
}

func (a *Analyzer) GetSnapshot() models.FrameMetrics {
	m := a.latest.Load()
	if m == nil {
		return models.FrameMetrics{}
	}
	return *m
}

func (a *Analyzer) GetCurrentStats() models.MonitorStats {
	m := a.GetSnapshot()

	stats := models.MonitorStats{
		Frames:          m.Frames,
		SkippedFrames:   m.SkippedFrames,
		DroppedFrames:   m.DroppedFrames,
		DropEvents:      m.DropEvents,
		TimeInDrop:      m.TimeInDrop,
		State:           m.State,
		ThresholdFPS:    a.cfg.ThresholdFPS,
		RequiredDrops:   a.detector.RequiredDrops(),
		ShortWindow:     a.cfg.ShortWindow,
		LongWindow:      a.cfg.LongWindow,
		SlowFrameTarget: a.cfg.SlowFrameTargetFPS,
		SlowFrameLimit:  a.slow.RequiredDrops(),
	}
	if m.Frames > 0 {
		stats.DropRate = float64(m.DroppedFrames) / float64(m.Frames)
	}
	if m.State == models.StateDropped {
		stats.TimeInDrop += m.CurrentDrop.Duration(m.UpdatedAt)
		started := m.CurrentDrop.StartedAt
		stats.LastDropTime = &started
	} else if n := len(m.RecentDrops); n > 0 {
		started := m.RecentDrops[n-1].StartedAt
		stats.LastDropTime = &started
	}
	return stats
}

// GetRecentDrops returns up to limit drop events, oldest first, including an ongoing one.
func (a *Analyzer) GetRecentDrops(limit int) []models.DropEvent {
	m := a.GetSnapshot()

	events := m.RecentDrops
	if m.State == models.StateDropped {
		events = append(events[:len(events):len(events)], m.CurrentDrop)
	}

	if limit > len(events) {
		limit = len(events)
	}
	if limit < 0 {
		limit = 0
	}

	start := len(events) - limit
	out := make([]models.DropEvent, limit)
	copy(out, events[start:])
	return out
}
