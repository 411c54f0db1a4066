package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"frame-monitor/internal/analytics"

	"gopkg.in/yaml.v3"
)

// Config is fixed at startup; nothing re-reads it while the monitor runs.
type Config struct {
	Monitor MonitorConfig `yaml:"monitor"`
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
	Host    HostConfig    `yaml:"host"`
	Process ProcessConfig `yaml:"process"`
}

type MonitorConfig struct {
	ThresholdFPS       float64       `yaml:"threshold_fps"`
	RequiredDrops      int           `yaml:"required_drops"`
	SlowFrameTargetFPS float64       `yaml:"slow_frame_target_fps"`
	SlowFrameLimit     int           `yaml:"slow_frame_limit"`
	ShortWindow        time.Duration `yaml:"short_window"`
	LongWindow         time.Duration `yaml:"long_window"`
	RefreshInterval    time.Duration `yaml:"refresh_interval"`
	MaxDropEvents      int           `yaml:"max_drop_events"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig enables the redis publisher when Addr is set.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
	MaxDrops  int64         `yaml:"max_drops"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type HostConfig struct {
	Window      bool          `yaml:"window"`
	Hz          int           `yaml:"hz"`
	Ticks       uint64        `yaml:"ticks"`
	Jitter      float64       `yaml:"jitter"`
	StallEvery  int           `yaml:"stall_every"`
	StallFrames int           `yaml:"stall_frames"`
	Stall       time.Duration `yaml:"stall"`
}

type ProcessConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"`
}

func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			ThresholdFPS:       60,
			RequiredDrops:      3,
			SlowFrameTargetFPS: 60,
			SlowFrameLimit:     5,
			ShortWindow:        10 * time.Second,
			LongWindow:         30 * time.Second,
			RefreshInterval:    100 * time.Millisecond,
			MaxDropEvents:      100,
		},
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			KeyPrefix: "frames",
			TTL:       time.Hour,
			MaxDrops:  1000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Host: HostConfig{
			Hz: 60,
		},
		Process: ProcessConfig{
			SampleInterval: time.Second,
		},
	}
}

// Validate resets out-of-range values to their defaults.
func (c *Config) Validate() error {
	d := Default()

	m := &c.Monitor
	if m.ThresholdFPS <= 0 {
		m.ThresholdFPS = d.Monitor.ThresholdFPS
	}
	if m.RequiredDrops < 1 {
		m.RequiredDrops = d.Monitor.RequiredDrops
	}
	if m.SlowFrameTargetFPS <= 0 {
		m.SlowFrameTargetFPS = d.Monitor.SlowFrameTargetFPS
	}
	if m.SlowFrameLimit < 1 {
		m.SlowFrameLimit = d.Monitor.SlowFrameLimit
	}
	if m.ShortWindow <= 0 {
		m.ShortWindow = d.Monitor.ShortWindow
	}
	if m.LongWindow <= 0 {
		m.LongWindow = d.Monitor.LongWindow
	}
	if m.RefreshInterval <= 0 {
		m.RefreshInterval = d.Monitor.RefreshInterval
	}
	if m.MaxDropEvents <= 0 {
		m.MaxDropEvents = d.Monitor.MaxDropEvents
	}

	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = d.Redis.KeyPrefix
	}
	if c.Redis.MaxDrops <= 0 {
		c.Redis.MaxDrops = d.Redis.MaxDrops
	}
	if c.Host.Hz <= 0 {
		c.Host.Hz = d.Host.Hz
	}
	if c.Host.Jitter < 0 || c.Host.Jitter >= 1 {
		return fmt.Errorf("host.jitter must be in [0, 1), got %v", c.Host.Jitter)
	}
	if c.Process.SampleInterval <= 0 {
		c.Process.SampleInterval = d.Process.SampleInterval
	}
	return nil
}

// Analytics converts the monitor section into analyzer settings.
func (c *Config) Analytics() analytics.Config {
	return analytics.Config{
		ShortWindow:        c.Monitor.ShortWindow,
		LongWindow:         c.Monitor.LongWindow,
		ThresholdFPS:       c.Monitor.ThresholdFPS,
		RequiredDrops:      c.Monitor.RequiredDrops,
		SlowFrameTargetFPS: c.Monitor.SlowFrameTargetFPS,
		SlowFrameLimit:     c.Monitor.SlowFrameLimit,
		MaxDropEvents:      c.Monitor.MaxDropEvents,
	}
}

// Load reads a YAML file on top of the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Port = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
