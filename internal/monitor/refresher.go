package monitor

import (
	"context"
	"time"

	"frame-monitor/internal/models"

	"github.com/rs/zerolog"
)

const DefaultRefreshInterval = 100 * time.Millisecond

// Sink receives the latest frame metrics on every refresh tick.
type Sink interface {
	Name() string
	Publish(ctx context.Context, m models.FrameMetrics) error
}

// DropRecorder is implemented by sinks that also keep finished drop events.
type DropRecorder interface {
	RecordDrop(ctx context.Context, e models.DropEvent) error
}

// Refresher polls a Monitor at a low, fixed cadence and fans the snapshot out to sinks.
// It never touches the frame pipeline itself.
type Refresher struct {
	source   func() models.FrameMetrics
	interval time.Duration
	sinks    []Sink
	logger   zerolog.Logger

	lastSeq       uint64
	lastState     models.FrameState
	lastAlert     bool
	lastRecovered time.Time
}

func NewRefresher(source func() models.FrameMetrics, interval time.Duration, logger zerolog.Logger, sinks ...Sink) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		source:   source,
		interval: interval,
		sinks:    sinks,
		logger:   logger.With().Str("component", "refresher").Logger(),
	}
}

func (r *Refresher) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.Tick(ctx)
		}
	}
}

// Tick publishes the current snapshot if it changed since the previous tick.
func (r *Refresher) Tick(ctx context.Context) {
	m := r.source()
	if m.Sequence == r.lastSeq {
		return
	}
	r.lastSeq = m.Sequence

	r.logTransitions(m)

	for _, s := range r.sinks {
		if err := s.Publish(ctx, m); err != nil {
			r.logger.Warn().Err(err).Str("sink", s.Name()).Msg("failed to publish frame metrics")
		}
	}

	for _, e := range m.RecentDrops {
		if e.Ongoing() || !e.RecoveredAt.After(r.lastRecovered) {
			continue
		}
		for _, s := range r.sinks {
			rec, ok := s.(DropRecorder)
			if !ok {
				continue
			}
			if err := rec.RecordDrop(ctx, e); err != nil {
				r.logger.Warn().Err(err).Str("sink", s.Name()).Msg("failed to record drop event")
			}
		}
		r.lastRecovered = *e.RecoveredAt
	}
}

func (r *Refresher) logTransitions(m models.FrameMetrics) {
	if m.State != r.lastState {
		if m.State == models.StateDropped {
			r.logger.Warn().
				Float64("instant_fps", m.InstantFPS).
				Float64("avg_short_fps", m.AvgShortFPS).
				Int("consecutive_drops", m.ConsecutiveDrops).
				Msg("Frame drop detected")
		} else {
			r.logger.Info().
				Float64("instant_fps", m.InstantFPS).
				Dur("lasted", m.RecentDropDuration()).
				Msg("Frame rate recovered")
		}
		r.lastState = m.State
	}
	if m.SlowFrameAlert != r.lastAlert {
		r.logger.Debug().Bool("slow_frame_alert", m.SlowFrameAlert).Int("slow_frames", m.SlowFrameCount).Msg("Slow frame alert changed")
		r.lastAlert = m.SlowFrameAlert
	}
}
