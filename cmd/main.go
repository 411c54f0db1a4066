package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os/signal"
	"syscall"
	"time"

	"frame-monitor/internal/cache"
	"frame-monitor/internal/config"
	"frame-monitor/internal/host"
	"frame-monitor/internal/host/window"
	"frame-monitor/internal/logging"
	"frame-monitor/internal/metrics"
	"frame-monitor/internal/monitor"
	"frame-monitor/internal/procstat"
	"frame-monitor/internal/server"
	"frame-monitor/internal/stream"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configPath = flag.String("config", "frame-monitor.yaml", "Path to the YAML config file.")
		useWindow  = flag.Bool("window", false, "Measure an ebiten window instead of the headless loop.")
		hz         = flag.Int("hz", 0, "Frame rate of the headless loop (overrides config).")
		ticks      = flag.Uint64("ticks", 0, "Stop after N headless frames (0 = run forever).")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New("info", false).Fatal().Err(err).Msg("Failed to load config")
	}
	if *useWindow {
		cfg.Host.Window = true
	}
	if *hz > 0 {
		cfg.Host.Hz = *hz
	}
	if *ticks > 0 {
		cfg.Host.Ticks = *ticks
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("Frame monitor stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	mon := monitor.New(cfg.Analytics(), nil, nil)

	exporter := metrics.NewExporter()
	hub := stream.NewHub(logger)
	defer hub.Close()
	sinks := []monitor.Sink{exporter, hub}

	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisClient(ctx, cache.Options{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
			MaxDrops:  cfg.Redis.MaxDrops,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis publishing disabled")
		} else {
			defer rc.Close()
			sinks = append(sinks, rc)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if ps, err := procstat.New(cfg.Process.SampleInterval); err != nil {
		logger.Warn().Err(err).Msg("Process CPU sampling disabled")
	} else {
		exporter.RegisterGaugeFunc("frame_monitor_process_cpu_percent", "CPU usage of the monitor process", ps.CPUPercent)
		exporter.RegisterGaugeFunc("frame_monitor_process_rss_bytes", "Resident memory of the monitor process", ps.RSSBytes)
		g.Go(func() error {
			if err := ps.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("Process CPU sampling stopped")
			}
			return nil
		})
	}

	refresher := monitor.NewRefresher(mon.Snapshot, cfg.Monitor.RefreshInterval, logger, sinks...)
	g.Go(func() error { return refresher.Run(ctx) })

	srv := server.New(mon.Analyzer(), server.Options{
		Addr:            net.JoinHostPort("", cfg.Server.Port),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger, exporter.Handler(), hub, exporter.Middleware)
	g.Go(func() error {
		// the websocket handlers only return once their clients are gone
		go func() {
			<-ctx.Done()
			hub.Close()
		}()
		return srv.Run(ctx)
	})

	logger.Info().
		Float64("threshold_fps", cfg.Monitor.ThresholdFPS).
		Int("required_drops", cfg.Monitor.RequiredDrops).
		Dur("short_window", cfg.Monitor.ShortWindow).
		Dur("long_window", cfg.Monitor.LongWindow).
		Bool("window", cfg.Host.Window).
		Msg("Frame monitor started")

	if cfg.Host.Window {
		// ebiten must own the main goroutine
		err := window.Run(window.Config{
			Title:       "Frame Monitor",
			TPS:         cfg.Host.Hz,
			Refresh:     cfg.Monitor.RefreshInterval,
			ShortWindow: cfg.Monitor.ShortWindow,
			LongWindow:  cfg.Monitor.LongWindow,
		}, mon.OnFrame, mon.Snapshot)
		cancel()
		return errors.Join(err, ignoreCanceled(g.Wait()))
	}

	g.Go(func() error {
		err := host.RunHeadless(ctx, host.HeadlessConfig{
			Hz:          cfg.Host.Hz,
			Ticks:       cfg.Host.Ticks,
			Jitter:      cfg.Host.Jitter,
			StallEvery:  cfg.Host.StallEvery,
			StallFrames: cfg.Host.StallFrames,
			Stall:       cfg.Host.Stall,
			Seed:        uint64(time.Now().UnixNano()),
		}, mon.OnFrame)
		if err != nil {
			return err
		}
		stats := mon.Analyzer().GetCurrentStats()
		logger.Info().
			Uint64("frames", stats.Frames).
			Uint64("drop_events", stats.DropEvents).
			Float64("drop_rate", stats.DropRate).
			Msg("Headless run finished")
		cancel()
		return nil
	})

	return ignoreCanceled(g.Wait())
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
