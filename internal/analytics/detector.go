package analytics

import "frame-monitor/internal/models"

// DropDetector classifies a stream of frame rates as Normal or Dropped.
//
// A value strictly below the threshold counts as a drop. The state becomes Dropped
// once the consecutive count reaches the requirement, and a single value at or above
// the threshold resets it to Normal. There is no further hysteresis.
type DropDetector struct {
	thresholdFPS float64
	required     int

	consecutive int
	state       models.FrameState
}

func NewDropDetector(thresholdFPS float64, requiredConsecutiveDrops int) *DropDetector {
	if requiredConsecutiveDrops < 1 {
		requiredConsecutiveDrops = 1
	}
	return &DropDetector{
		thresholdFPS: thresholdFPS,
		required:     requiredConsecutiveDrops,
	}
}

func (d *DropDetector) Update(fps float64) models.FrameState {
	if fps < d.thresholdFPS {
		d.consecutive++
		if d.consecutive >= d.required {
			d.state = models.StateDropped
		}
	} else {
		d.consecutive = 0
		d.state = models.StateNormal
	}
	return d.state
}

func (d *DropDetector) State() models.FrameState { return d.state }

func (d *DropDetector) ConsecutiveDrops() int { return d.consecutive }

func (d *DropDetector) ThresholdFPS() float64 { return d.thresholdFPS }

func (d *DropDetector) RequiredDrops() int { return d.required }

func (d *DropDetector) Reset() {
	d.consecutive = 0
	d.state = models.StateNormal
}
