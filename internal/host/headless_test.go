package host

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"
)

func TestRunHeadless_TickLimit(t *testing.T) {
	var frames int
	err := RunHeadless(context.Background(), HeadlessConfig{Hz: 500, Ticks: 10}, func() { frames++ })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if frames != 10 {
		t.Fatalf("frames = %d, want 10", frames)
	}
}

func TestRunHeadless_Cancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := RunHeadless(ctx, HeadlessConfig{Hz: 1000}, func() {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run returned %v", err)
	}
}

func TestHeadlessConfig_Interval(t *testing.T) {
	cfg := HeadlessConfig{Jitter: 0.1, StallEvery: 10, StallFrames: 3, Stall: 20 * time.Millisecond}
	rng := rand.New(rand.NewPCG(1, 2))
	period := 10 * time.Millisecond
	for tick := uint64(1); tick <= 40; tick++ {
		d := cfg.interval(period, tick, rng)
		stalled := tick%10 < 3
		lo, hi := 9*time.Millisecond, 11*time.Millisecond
		if stalled {
			lo, hi = lo+cfg.Stall, hi+cfg.Stall
		}
		if d < lo || d > hi {
			t.Fatalf("tick %d: interval %v outside [%v, %v]", tick, d, lo, hi)
		}
	}
}
