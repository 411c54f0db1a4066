package monitor

import (
	"time"

	"frame-monitor/internal/analytics"
	"frame-monitor/internal/clock"
	"frame-monitor/internal/models"
)

// Monitor is the per-session frame-timing pipeline. OnFrame belongs to the render
// loop; Snapshot may be called from anywhere.
type Monitor struct {
	sampler  *clock.Sampler
	analyzer *analytics.Analyzer
	now      func() time.Time
}

func New(cfg analytics.Config, src clock.Source, now func() time.Time) *Monitor {
	if src == nil {
		src = clock.NewMonotonicSource()
	}
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		sampler:  clock.NewSampler(src),
		analyzer: analytics.NewAnalyzer(cfg, now),
		now:      now,
	}
}

// OnFrame must be invoked exactly once per rendered frame.
func (m *Monitor) OnFrame() {
	sec, ok := m.sampler.ElapsedSinceLast()
	t := m.now()
	if !ok || sec <= 0 {
		m.analyzer.Skip(t)
		return
	}
	m.analyzer.Observe(sec*1000, t)
}

func (m *Monitor) Snapshot() models.FrameMetrics {
	return m.analyzer.GetSnapshot()
}

func (m *Monitor) Analyzer() *analytics.Analyzer {
	return m.analyzer
}
