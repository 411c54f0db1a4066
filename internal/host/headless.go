package host

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// HeadlessConfig drives a synthetic render loop without opening a window.
type HeadlessConfig struct {
	Hz    int
	Ticks uint64 // stop after N frames, 0 runs until ctx is done

	// Jitter spreads each frame interval uniformly by ±Jitter of the nominal period.
	Jitter float64

	// Every StallEvery frames, StallFrames consecutive frames are delayed by Stall.
	StallEvery  int
	StallFrames int
	Stall       time.Duration

	Seed uint64
}

// RunHeadless calls onFrame once per simulated frame until ctx is cancelled or
// the tick limit is reached.
func RunHeadless(ctx context.Context, cfg HeadlessConfig, onFrame func()) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	period := time.Second / time.Duration(cfg.Hz)
	if period <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	if cfg.StallEvery > 0 && cfg.StallFrames <= 0 {
		cfg.StallFrames = 6
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	t := time.NewTimer(period)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			onFrame()
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
			t.Reset(cfg.interval(period, tick, rng))
		}
	}
}

func (cfg HeadlessConfig) interval(period time.Duration, tick uint64, rng *rand.Rand) time.Duration {
	d := period
	if cfg.Jitter > 0 {
		d += time.Duration(float64(period) * cfg.Jitter * (rng.Float64()*2 - 1))
	}
	if cfg.StallEvery > 0 && int(tick%uint64(cfg.StallEvery)) < cfg.StallFrames {
		d += cfg.Stall
	}
	return max(d, time.Millisecond)
}
