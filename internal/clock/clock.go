package clock

import "time"

// Source is a monotonic tick counter. Only differences between readings are meaningful.
type Source interface {
	Now() int64
	TicksPerSecond() int64
}

// MonotonicSource reads Go's monotonic clock in nanoseconds since construction.
type MonotonicSource struct {
	epoch time.Time
}

func NewMonotonicSource() *MonotonicSource {
	return &MonotonicSource{epoch: time.Now()}
}

func (s *MonotonicSource) Now() int64 { return int64(time.Since(s.epoch)) }

func (s *MonotonicSource) TicksPerSecond() int64 { return int64(time.Second) }

// ManualSource is advanced explicitly; used for replays and tests.
type ManualSource struct {
	Ticks     int64
	Frequency int64
}

func (s *ManualSource) Now() int64 { return s.Ticks }

func (s *ManualSource) TicksPerSecond() int64 {
	if s.Frequency <= 0 {
		return int64(time.Second)
	}
	return s.Frequency
}

func (s *ManualSource) Advance(d int64) { s.Ticks += d }

// Sampler turns successive readings of a Source into elapsed seconds.
// It is owned by the render loop and is not safe for concurrent use.
type Sampler struct {
	src     Source
	last    int64
	started bool
}

func NewSampler(src Source) *Sampler {
	return &Sampler{src: src}
}

// ElapsedSinceLast returns the seconds since the previous call. The first call only
// records the current tick and returns ok == false.
func (s *Sampler) ElapsedSinceLast() (seconds float64, ok bool) {
	now := s.src.Now()
	if !s.started {
		s.last = now
		s.started = true
		return 0, false
	}

	delta := now - s.last
	s.last = now
	if delta < 0 {
		assertMonotonic(delta)
		delta = 0
	}
	return float64(delta) / float64(s.src.TicksPerSecond()), true
}

// Reset forgets the previous reading so the next call is treated as the first frame.
func (s *Sampler) Reset() {
	s.started = false
	s.last = 0
}
