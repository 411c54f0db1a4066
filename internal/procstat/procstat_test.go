package procstat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSampler_Run(t *testing.T) {
	s, err := New(50 * time.Millisecond)
	if err != nil {
		t.Skipf("process info unavailable: %v", err)
	}
	if s.CPUPercent() != 0 {
		t.Fatalf("cpu before first sample = %v", s.CPUPercent())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err = s.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run returned %v", err)
	}
	if s.CPUPercent() < 0 {
		t.Fatalf("negative cpu %v", s.CPUPercent())
	}
	if s.RSSBytes() <= 0 {
		t.Fatalf("rss not sampled")
	}
}
