package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"frame-monitor/internal/analytics"
	"frame-monitor/internal/models"

	"github.com/rs/zerolog"
)

func newAnalyzer(t *testing.T) *analytics.Analyzer {
	t.Helper()
	a := analytics.NewAnalyzer(analytics.DefaultConfig(), nil)
	at := time.Unix(1_700_000_000, 0)
	feed := func(ms float64, n int) {
		for i := 0; i < n; i++ {
			at = at.Add(time.Duration(ms * float64(time.Millisecond)))
			a.Observe(ms, at)
		}
	}
	feed(16.6, 50)
	feed(25, 4)
	feed(16.6, 1)
	feed(25, 3)
	return a
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s: decode %q: %v", path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func TestServer_Endpoints(t *testing.T) {
	s := New(newAnalyzer(t), Options{}, zerolog.Nop(), nil, nil)
	h := s.Handler()

	var health map[string]any
	if code := get(t, h, "/health", &health); code != http.StatusOK {
		t.Fatalf("health status %d", code)
	}
	if health["status"] != "healthy" || health["state"] != "dropped" {
		t.Fatalf("health = %v", health)
	}

	var current models.FrameMetrics
	get(t, h, "/analytics/current", &current)
	if current.State != models.StateDropped || current.Frames != 58 || current.InstantFPS != 40 {
		t.Fatalf("current = %+v", current)
	}

	var stats models.MonitorStats
	get(t, h, "/analytics/stats", &stats)
	if stats.DropEvents != 2 || stats.RequiredDrops != 3 || stats.ThresholdFPS != 60 {
		t.Fatalf("stats = %+v", stats)
	}

	var drops []models.DropEvent
	get(t, h, "/analytics/drops", &drops)
	if len(drops) != 2 || drops[0].Ongoing() || !drops[1].Ongoing() {
		t.Fatalf("drops = %+v", drops)
	}
	get(t, h, "/analytics/drops?limit=1", &drops)
	if len(drops) != 1 {
		t.Fatalf("limited drops = %+v", drops)
	}
	if code := get(t, h, "/analytics/drops?limit=x", nil); code != http.StatusBadRequest {
		t.Fatalf("bad limit status %d", code)
	}
	if code := get(t, h, "/metrics/prometheus", nil); code != http.StatusNotFound {
		t.Fatalf("metrics route without exporter: %d", code)
	}
}

func TestServer_RunShutsDown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	s := New(newAnalyzer(t), Options{Addr: addr, ShutdownTimeout: time.Second}, zerolog.Nop(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not stop")
	}
}
