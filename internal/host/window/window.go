// Package window hosts the monitor inside an ebiten render loop.
package window

import (
	"time"

	"frame-monitor/internal/host"
	"frame-monitor/internal/models"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

type Config struct {
	Title         string
	Width, Height int
	TPS           int
	Refresh       time.Duration
	ShortWindow   time.Duration
	LongWindow    time.Duration
}

// Run opens a window and blocks until it closes. onFrame is invoked from Draw,
// once per frame actually presented; the overlay text is refreshed at cfg.Refresh.
func Run(cfg Config, onFrame func(), snapshot func() models.FrameMetrics) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 320, 120
	}
	if cfg.TPS <= 0 {
		cfg.TPS = 60
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = 100 * time.Millisecond
	}

	g := &game{cfg: cfg, onFrame: onFrame, snapshot: snapshot}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width*2, cfg.Height*2)
	ebiten.SetTPS(cfg.TPS)
	return ebiten.RunGame(g)
}

type game struct {
	cfg      Config
	onFrame  func()
	snapshot func() models.FrameMetrics

	text      string
	state     models.FrameState
	refreshed time.Time
}

func (g *game) Update() error { return nil }

func (g *game) Draw(screen *ebiten.Image) {
	g.onFrame()

	if now := time.Now(); now.Sub(g.refreshed) >= g.cfg.Refresh {
		m := g.snapshot()
		g.text = host.FormatOverlay(m, g.cfg.ShortWindow, g.cfg.LongWindow)
		g.state = m.State
		g.refreshed = now
	}

	vector.DrawFilledRect(screen, 0, float32(g.cfg.Height-8), float32(g.cfg.Width), 8, g.state.Color(), false)
	ebitenutil.DebugPrint(screen, g.text)
}

func (g *game) Layout(int, int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}
