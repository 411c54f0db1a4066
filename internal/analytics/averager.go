package analytics

import (
	"time"

	"frame-monitor/internal/models"
)

// WindowedAverager keeps frame-time samples captured within a trailing time window
// and reports their arithmetic mean. It is owned by a single goroutine.
type WindowedAverager struct {
	window  time.Duration
	now     func() time.Time
	samples []models.Sample
	head    int
}

func NewWindowedAverager(window time.Duration, now func() time.Time) *WindowedAverager {
	if now == nil {
		now = time.Now
	}
	return &WindowedAverager{
		window:  window,
		now:     now,
		samples: make([]models.Sample, 0, 256),
	}
}

func (a *WindowedAverager) Window() time.Duration { return a.window }

// AddSample records value stamped with the current wall-clock time.
func (a *WindowedAverager) AddSample(value float64) {
	a.AddSampleAt(a.now(), value)
}

// AddSampleAt records value captured at t and evicts samples older than the window.
func (a *WindowedAverager) AddSampleAt(t time.Time, value float64) {
	a.samples = append(a.samples, models.Sample{CapturedAt: t, Value: value})

	for a.head < len(a.samples) && t.Sub(a.samples[a.head].CapturedAt) > a.window {
		a.head++
	}
	a.compact()
}

// compact drops the evicted prefix once it makes up most of the backing array.
func (a *WindowedAverager) compact() {
	if a.head == 0 || a.head < len(a.samples)/2 {
		return
	}
	n := copy(a.samples, a.samples[a.head:])
	clear(a.samples[n:])
	a.samples = a.samples[:n]
	a.head = 0
}

// Average returns the mean of the samples still inside the window, or 0 when none are.
func (a *WindowedAverager) Average() float64 {
	return a.AverageAt(a.now())
}

func (a *WindowedAverager) AverageAt(now time.Time) float64 {
	var sum float64
	var n int
	for _, s := range a.samples[a.head:] {
		if now.Sub(s.CapturedAt) > a.window {
			continue
		}
		sum += s.Value
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Len is the number of retained samples, including any that expired since the last add.
func (a *WindowedAverager) Len() int {
	return len(a.samples) - a.head
}

// RateFromFrameTime converts a frame time in milliseconds to frames per second.
// Zero means no data.
func RateFromFrameTime(ms float64) float64 {
	if ms <= 0 {
		return 0
	}
	return 1000 / ms
}
