package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MatusOllah/slogcolor"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/config"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/history"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/metrics"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/monitor"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/server"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/store"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/ui"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to configuration file (YAML)")
		headless   = flag.Bool("headless", false, "run without the terminal panel")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := buildLogger(cfg, *headless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(cfg, *headless, logger); err != nil {
		logger.Error("applet failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg config.Config, headless bool, logger *slog.Logger) error {
	aps, err := store.Open(filepath.Join(cfg.DataDirectory, "ap_names.json"), logger)
	if err != nil {
		return fmt.Errorf("open ap store: %w", err)
	}

	collector, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ring := history.NewRing(cfg.HistoryDepth)
	feed := ui.NewFeed()
	defer feed.Close()

	coord := monitor.NewCoordinator(monitor.CoordinatorOptions{
		ProbeInterval:    cfg.ProbeInterval(),
		ProbeTimeout:     cfg.ProbeTimeout(),
		TransitionWindow: cfg.TransitionWindow(),
		ResolveTimeout:   cfg.ResolveTimeout(),
		FailureThreshold: cfg.Probe.FailureThreshold,
		RetryInterval:    cfg.RetryInterval(),
		GatewayPoll:      cfg.GatewayPollInterval(),
		SettleDelay:      cfg.SettleDelay(),
		WirelessPoll:     cfg.WirelessPollInterval(),
		SignalDelta:      cfg.Wireless.SignalDelta,
	}, monitor.CoordinatorDeps{
		Routes:   monitor.NewSystemRouteSource(),
		Notifier: monitor.NewInterfaceNotifier(cfg.ScanInterval()),
		Wireless: monitor.NewWirelessCommand(cfg.Wireless.Command),
		Pinger:   monitor.NewICMPPinger(cfg.Probe.Privileged),
		Store:    aps,
		Sink:     feed,
		Metrics:  collector,
		Log:      logger,
	})
	if err := coord.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer coord.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The feed server owns history sampling when it runs; without it the
	// terminal panel still needs the ring fed.
	if cfg.Server.Listen == "" && !headless {
		go sampleHistory(ctx, coord, ring)
	}

	if cfg.Server.Listen != "" {
		srv := server.New(server.Options{
			Addr:         cfg.Server.Listen,
			Engine:       coord,
			Store:        aps,
			History:      ring,
			Metrics:      collector.Handler(),
			HistoryLimit: cfg.HistoryDepth,
			Log:          logger,
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown", "error", err)
			}
		}()
		go func() {
			logger.Info("status feed listening", "addr", cfg.Server.Listen)
			if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status feed failed", "error", err)
			}
		}()
	}

	if headless {
		logger.Info("running headless", "target", coord.Target().Label())
		<-ctx.Done()
		return nil
	}

	return ui.Run(ctx, coord, feed.Statuses(), ring)
}

func sampleHistory(ctx context.Context, coord *monitor.Coordinator, ring *history.Ring) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := coord.Snapshot()
			if !snap.HasOutcome {
				continue
			}
			ring.Add(models.ProbeSample{
				At:        snap.GeneratedAt,
				Success:   snap.LastOutcome.Success,
				LatencyMs: snap.LastOutcome.LatencyMs,
				Code:      string(snap.LastOutcome.Kind),
			})
		case <-ctx.Done():
			return
		}
	}
}

// buildLogger picks the log destination: a file when configured, colorized
// stderr when headless, and discard otherwise since the terminal belongs to
// the panel.
func buildLogger(cfg config.Config, headless bool) (*slog.Logger, func(), error) {
	level := parseLevel(cfg.Log.Level)

	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
		return slog.New(handler), func() { _ = f.Close() }, nil
	}

	if !headless {
		handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})
		return slog.New(handler), func() {}, nil
	}

	opts := *slogcolor.DefaultOptions
	opts.Level = level
	return slog.New(slogcolor.NewHandler(os.Stderr, &opts)), func() {}, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
