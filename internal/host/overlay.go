package host

import (
	"fmt"
	"strings"
	"time"

	"frame-monitor/internal/models"
)

// FormatOverlay renders the text shown by the window host.
func FormatOverlay(m models.FrameMetrics, short, long time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.1f FPS\n", m.InstantFPS)
	fmt.Fprintf(&b, "avg%s: %.1f\n", windowLabel(short), m.AvgShortFPS)
	fmt.Fprintf(&b, "avg%s: %.1f\n", windowLabel(long), m.AvgLongFPS)
	b.WriteString(m.State.String())
	if m.SlowFrameAlert {
		fmt.Fprintf(&b, " (%d slow frames)", m.SlowFrameCount)
	}
	return b.String()
}

func windowLabel(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int(d/time.Second))
	}
	return d.String()
}
