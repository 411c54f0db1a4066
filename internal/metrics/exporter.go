package metrics

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"frame-monitor/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter mirrors published frame metrics into prometheus collectors.
type Exporter struct {
	reg *prometheus.Registry

	instantFPS       prometheus.Gauge
	frameTimeMs      prometheus.Gauge
	avgFPS           *prometheus.GaugeVec
	avgFrameTimeMs   *prometheus.GaugeVec
	dropState        prometheus.Gauge
	consecutiveDrops prometheus.Gauge
	slowFrameAlert   prometheus.Gauge
	frameTime        prometheus.Histogram

	framesTotal     prometheus.Counter
	skippedTotal    prometheus.Counter
	dropEventsTotal prometheus.Counter

	httpRequestsTotal *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec

	lastFrames, lastSkipped, lastDrops uint64
}

func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Exporter{
		reg: reg,
		instantFPS: f.NewGauge(prometheus.GaugeOpts{
			Name: "frame_monitor_instant_fps",
			Help: "Frame rate of the most recent rendered frame",
		}),
		frameTimeMs: f.NewGauge(prometheus.GaugeOpts{
			Name: "frame_monitor_frame_time_ms",
			Help: "Duration of the most recent rendered frame in milliseconds",
		}),
		avgFPS: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "frame_monitor_average_fps",
			Help: "Frame rate derived from the windowed average frame time",
		}, []string{"window"}),
		avgFrameTimeMs: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "frame_monitor_average_frame_time_ms",
			Help: "Windowed average frame time in milliseconds",
		}, []string{"window"}),
		dropState: f.NewGauge(prometheus.GaugeOpts{
			Name: "frame_monitor_frame_drop",
			Help: "1 while the render loop is in the frame drop state",
		}),
		consecutiveDrops: f.NewGauge(prometheus.GaugeOpts{
			Name: "frame_monitor_consecutive_drops",
			Help: "Current number of consecutive frames below the threshold",
		}),
		slowFrameAlert: f.NewGauge(prometheus.GaugeOpts{
			Name: "frame_monitor_slow_frame_alert",
			Help: "1 while the slow frame counter is over its limit",
		}),
		frameTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "frame_monitor_frame_time_seconds",
			Help:    "Frame time of the newest frame, sampled once per refresh in which frames were rendered",
			Buckets: []float64{0.004, 0.007, 0.0084, 0.0112, 0.0167, 0.02, 0.0334, 0.05, 0.1, 0.25},
		}),
		framesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "frame_monitor_frames_total",
			Help: "Total number of measured frames",
		}),
		skippedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "frame_monitor_skipped_frames_total",
			Help: "Total number of frame callbacks that produced no sample",
		}),
		dropEventsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "frame_monitor_drop_events_total",
			Help: "Total number of transitions into the frame drop state",
		}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

func (e *Exporter) Name() string { return "prometheus" }

// Publish is called from the refresher only.
func (e *Exporter) Publish(_ context.Context, m models.FrameMetrics) error {
	e.instantFPS.Set(m.InstantFPS)
	e.frameTimeMs.Set(m.FrameTimeMs)
	e.avgFPS.WithLabelValues("short").Set(m.AvgShortFPS)
	e.avgFPS.WithLabelValues("long").Set(m.AvgLongFPS)
	e.avgFrameTimeMs.WithLabelValues("short").Set(m.AvgShortMs)
	e.avgFrameTimeMs.WithLabelValues("long").Set(m.AvgLongMs)
	e.dropState.Set(boolToFloat(m.State == models.StateDropped))
	e.consecutiveDrops.Set(float64(m.ConsecutiveDrops))
	e.slowFrameAlert.Set(boolToFloat(m.SlowFrameAlert))
	// skipped callbacks republish the previous frame time
	if m.Frames > e.lastFrames && m.FrameTimeMs > 0 {
		e.frameTime.Observe(m.FrameTimeMs / 1000)
	}

	e.framesTotal.Add(float64(m.Frames - e.lastFrames))
	e.skippedTotal.Add(float64(m.SkippedFrames - e.lastSkipped))
	e.dropEventsTotal.Add(float64(m.DropEvents - e.lastDrops))
	e.lastFrames, e.lastSkipped, e.lastDrops = m.Frames, m.SkippedFrames, m.DropEvents
	return nil
}

// RegisterGaugeFunc exposes a value computed on scrape.
func (e *Exporter) RegisterGaugeFunc(name, help string, fn func() float64) {
	promauto.With(e.reg).NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn)
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{Registry: e.reg})
}

func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// Middleware records request counts and latency per route template.
func (e *Exporter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		e.requestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		e.httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(sw.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
