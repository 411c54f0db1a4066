package models

import (
	"fmt"
	"image/color"
	"time"
)

// FrameState classifies the render loop.
type FrameState uint8

const (
	StateNormal FrameState = iota
	StateDropped
)

func (s FrameState) String() string {
	if s == StateDropped {
		return "Frame Drop"
	}
	return "Normal"
}

// Color returns the display color used for the state label.
func (s FrameState) Color() color.RGBA {
	if s == StateDropped {
		return color.RGBA{R: 0xE5, G: 0x39, B: 0x35, A: 0xFF}
	}
	return color.RGBA{R: 0x43, G: 0xA0, B: 0x47, A: 0xFF}
}

func (s FrameState) MarshalText() ([]byte, error) {
	switch s {
	case StateNormal:
		return []byte("normal"), nil
	case StateDropped:
		return []byte("dropped"), nil
	}
	return nil, fmt.Errorf("unknown frame state %d", s)
}

func (s *FrameState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "normal":
		*s = StateNormal
	case "dropped":
		*s = StateDropped
	default:
		return fmt.Errorf("unknown frame state %q", b)
	}
	return nil
}

// Sample is one frame time captured by a windowed averager.
type Sample struct {
	CapturedAt time.Time
	Value      float64
}

type DropEvent struct {
	StartedAt   time.Time  `json:"started_at"`
	RecoveredAt *time.Time `json:"recovered_at,omitempty"`
	Frames      int        `json:"frames"`
	MinFPS      float64    `json:"min_fps"`
}

// Ongoing reports whether the render loop has not recovered yet.
func (e DropEvent) Ongoing() bool {
	return e.RecoveredAt == nil
}

// Duration is the time spent in the drop state, measured up to now while ongoing.
func (e DropEvent) Duration(now time.Time) time.Duration {
	if e.Ongoing() {
		return now.Sub(e.StartedAt)
	}
	return e.RecoveredAt.Sub(e.StartedAt)
}

// FrameMetrics is the immutable record published after every frame.
type FrameMetrics struct {
	Sequence         uint64        `json:"sequence"`
	UpdatedAt        time.Time     `json:"updated_at"`
	FrameTimeMs      float64       `json:"frame_time_ms"`
	InstantFPS       float64       `json:"instant_fps"`
	AvgShortMs       float64       `json:"avg_short_ms"`
	AvgShortFPS      float64       `json:"avg_short_fps"`
	AvgLongMs        float64       `json:"avg_long_ms"`
	AvgLongFPS       float64       `json:"avg_long_fps"`
	State            FrameState    `json:"state"`
	ConsecutiveDrops int           `json:"consecutive_drops"`
	SlowFrameAlert   bool          `json:"slow_frame_alert"`
	SlowFrameCount   int           `json:"slow_frame_count"`
	Frames           uint64        `json:"frames"`
	SkippedFrames    uint64        `json:"skipped_frames"`
	DroppedFrames    uint64        `json:"dropped_frames"` // frames below the threshold FPS
	DropEvents       uint64        `json:"drop_events"`
	TimeInDrop       time.Duration `json:"time_in_drop_ns"`
	CurrentDrop      DropEvent     `json:"-"`
	RecentDrops      []DropEvent   `json:"-"`
}

type MonitorStats struct {
	Frames          uint64        `json:"frames"`
	SkippedFrames   uint64        `json:"skipped_frames"`
	DroppedFrames   uint64        `json:"dropped_frames"`
	DropEvents      uint64        `json:"drop_events"`
	DropRate        float64       `json:"drop_rate"`
	TimeInDrop      time.Duration `json:"time_in_drop_ns"`
	LastDropTime    *time.Time    `json:"last_drop_time,omitempty"`
	State           FrameState    `json:"state"`
	ThresholdFPS    float64       `json:"threshold_fps"`
	RequiredDrops   int           `json:"required_drops"`
	ShortWindow     time.Duration `json:"short_window_ns"`
	LongWindow      time.Duration `json:"long_window_ns"`
	SlowFrameTarget float64       `json:"slow_frame_target_fps"`
	SlowFrameLimit  int           `json:"slow_frame_limit"`
}

// RecentDropDuration is the length of the most recently finished drop event.
func (m FrameMetrics) RecentDropDuration() time.Duration {
	if n := len(m.RecentDrops); n > 0 {
		return m.RecentDrops[n-1].Duration(m.UpdatedAt)
	}
	return 0
}
