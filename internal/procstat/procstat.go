package procstat

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Sampler measures this process's CPU usage so the monitor's own overhead is visible.
type Sampler struct {
	proc     *process.Process
	interval time.Duration
	percent  atomic.Uint64
	rss      atomic.Uint64
}

func New(interval time.Duration) (*Sampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to open own process: %w", err)
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Sampler{proc: p, interval: interval}, nil
}

// Run blocks, sampling once per interval until ctx is done.
func (s *Sampler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cpu, err := s.proc.PercentWithContext(ctx, s.interval)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to sample process cpu: %w", err)
		}
		s.percent.Store(math.Float64bits(cpu))

		if mem, err := s.proc.MemoryInfoWithContext(ctx); err == nil {
			s.rss.Store(mem.RSS)
		}
	}
}

func (s *Sampler) CPUPercent() float64 {
	return math.Float64frombits(s.percent.Load())
}

func (s *Sampler) RSSBytes() float64 {
	return float64(s.rss.Load())
}
