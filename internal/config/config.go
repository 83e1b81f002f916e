package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents configuration data for the applet. Every duration is
// expressed in milliseconds in the file; accessor methods convert.
type Config struct {
	Probe         ProbeConfig    `yaml:"probe"`
	Gateway       GatewayConfig  `yaml:"gateway"`
	Wireless      WirelessConfig `yaml:"wireless"`
	ResolveMs     int            `yaml:"resolve_timeout_ms"`
	HistoryDepth  int            `yaml:"history_depth"`
	Server        ServerConfig   `yaml:"server"`
	DataDirectory string         `yaml:"data_directory"`
	Log           LogConfig      `yaml:"log"`
}

// ProbeConfig controls the liveness probe cadence and escalation.
type ProbeConfig struct {
	IntervalMs       int  `yaml:"interval_ms"`
	TimeoutMs        int  `yaml:"timeout_ms"`
	FailureThreshold int  `yaml:"failure_threshold"`
	RetryIntervalMs  int  `yaml:"retry_interval_ms"`
	Privileged       bool `yaml:"privileged"`
}

// GatewayConfig controls default-gateway discovery.
type GatewayConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"`
	SettleDelayMs  int `yaml:"settle_delay_ms"`
	ScanIntervalMs int `yaml:"scan_interval_ms"`
}

// WirelessConfig controls the wireless association poll. Command overrides
// the platform default query command; its output must follow the
// "Key : Value" layout of `netsh wlan show interfaces`.
type WirelessConfig struct {
	PollIntervalMs int      `yaml:"poll_interval_ms"`
	TransitionMs   int      `yaml:"transition_ms"`
	SignalDelta    int      `yaml:"signal_delta"`
	Command        []string `yaml:"command"`
}

// ServerConfig controls the local status feed. An empty listen address
// disables the server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig controls log output. When File is set, logs go there as plain
// text instead of colorized stderr.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the fixed operational constants used when no
// configuration file is provided.
func DefaultConfig() Config {
	return Config{
		Probe: ProbeConfig{
			IntervalMs:       1000,
			TimeoutMs:        1000,
			FailureThreshold: 5,
			RetryIntervalMs:  10000,
			Privileged:       runtime.GOOS == "windows",
		},
		Gateway: GatewayConfig{
			PollIntervalMs: 30000,
			SettleDelayMs:  1000,
			ScanIntervalMs: 2000,
		},
		Wireless: WirelessConfig{
			PollIntervalMs: 1000,
			TransitionMs:   10000,
			SignalDelta:    5,
		},
		ResolveMs:     2000,
		HistoryDepth:  300,
		DataDirectory: defaultDataDir(),
		Log:           LogConfig{Level: "info"},
	}
}

// Load reads configuration from a yaml file. Missing files fall back to
// defaults; zero or negative numeric values are clamped back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	clampInt(&c.Probe.IntervalMs, def.Probe.IntervalMs)
	clampInt(&c.Probe.TimeoutMs, def.Probe.TimeoutMs)
	clampInt(&c.Probe.FailureThreshold, def.Probe.FailureThreshold)
	clampInt(&c.Probe.RetryIntervalMs, def.Probe.RetryIntervalMs)
	clampInt(&c.Gateway.PollIntervalMs, def.Gateway.PollIntervalMs)
	clampInt(&c.Gateway.SettleDelayMs, def.Gateway.SettleDelayMs)
	clampInt(&c.Gateway.ScanIntervalMs, def.Gateway.ScanIntervalMs)
	clampInt(&c.Wireless.PollIntervalMs, def.Wireless.PollIntervalMs)
	clampInt(&c.Wireless.TransitionMs, def.Wireless.TransitionMs)
	clampInt(&c.Wireless.SignalDelta, def.Wireless.SignalDelta)
	clampInt(&c.ResolveMs, def.ResolveMs)
	clampInt(&c.HistoryDepth, def.HistoryDepth)
	if c.DataDirectory == "" {
		c.DataDirectory = def.DataDirectory
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

func clampInt(v *int, fallback int) {
	if *v <= 0 {
		*v = fallback
	}
}

// ProbeInterval is the cadence of liveness probes.
func (c Config) ProbeInterval() time.Duration { return ms(c.Probe.IntervalMs) }

// ProbeTimeout bounds a single probe.
func (c Config) ProbeTimeout() time.Duration { return ms(c.Probe.TimeoutMs) }

// RetryInterval is the escalation cadence after repeated probe failures.
func (c Config) RetryInterval() time.Duration { return ms(c.Probe.RetryIntervalMs) }

// GatewayPollInterval is the redundant gateway re-discovery cadence.
func (c Config) GatewayPollInterval() time.Duration { return ms(c.Gateway.PollIntervalMs) }

// SettleDelay is the stabilization wait after the network comes up.
func (c Config) SettleDelay() time.Duration { return ms(c.Gateway.SettleDelayMs) }

// ScanInterval is the network-change notifier's interface scan cadence.
func (c Config) ScanInterval() time.Duration { return ms(c.Gateway.ScanIntervalMs) }

// WirelessPollInterval is the wireless association poll cadence.
func (c Config) WirelessPollInterval() time.Duration { return ms(c.Wireless.PollIntervalMs) }

// TransitionWindow is the post-roam damping interval.
func (c Config) TransitionWindow() time.Duration { return ms(c.Wireless.TransitionMs) }

// ResolveTimeout bounds DNS resolution of a custom host.
func (c Config) ResolveTimeout() time.Duration { return ms(c.ResolveMs) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".ping-applet"
	}
	return filepath.Join(base, "ping-applet")
}
