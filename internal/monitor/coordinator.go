package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

// StatusSink receives every recomputed Status. Implementations must be safe
// to call from any goroutine and must not block; the coordinator calls sinks
// outside its lock.
type StatusSink interface {
	OnStatusChanged(status models.Status)
}

// APStore persists access point display names and the last custom target.
// Empty strings mean "none".
type APStore interface {
	DisplayName(bssid string) string
	RecordSeen(bssid string)
	LastCustomTarget() string
	SetLastCustomTarget(host string)
}

// MetricsRecorder receives engine observations. A nil recorder is replaced
// with a no-op.
type MetricsRecorder interface {
	ObserveProbe(outcome models.ProbeOutcome)
	SetNetworkAvailable(available bool)
	SetConsecutiveFailures(n int)
	IncRoam()
}

type noopMetrics struct{}

func (noopMetrics) ObserveProbe(models.ProbeOutcome) {}
func (noopMetrics) SetNetworkAvailable(bool)         {}
func (noopMetrics) SetConsecutiveFailures(int)       {}
func (noopMetrics) IncRoam()                         {}

type noopStore struct{}

func (noopStore) DisplayName(string) string  { return "" }
func (noopStore) RecordSeen(string)          {}
func (noopStore) LastCustomTarget() string   { return "" }
func (noopStore) SetLastCustomTarget(string) {}

// ResolveFunc resolves a custom host to the address to probe.
type ResolveFunc func(ctx context.Context, host string) (string, error)

// CoordinatorOptions carries the engine's operational constants. Zero fields
// fall back to the production defaults.
type CoordinatorOptions struct {
	ProbeInterval    time.Duration
	ProbeTimeout     time.Duration
	TransitionWindow time.Duration
	ResolveTimeout   time.Duration
	FailureThreshold int
	RetryInterval    time.Duration
	GatewayPoll      time.Duration
	SettleDelay      time.Duration
	WirelessPoll     time.Duration
	WirelessTimeout  time.Duration
	SignalDelta      int
}

func (o *CoordinatorOptions) applyDefaults() {
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = time.Second
	}
	if o.TransitionWindow <= 0 {
		o.TransitionWindow = 10 * time.Second
	}
	if o.ResolveTimeout <= 0 {
		o.ResolveTimeout = 2 * time.Second
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 5
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 10 * time.Second
	}
	if o.GatewayPoll <= 0 {
		o.GatewayPoll = 30 * time.Second
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = time.Second
	}
	if o.WirelessPoll <= 0 {
		o.WirelessPoll = time.Second
	}
	if o.SignalDelta <= 0 {
		o.SignalDelta = 5
	}
}

// CoordinatorDeps carries the coordinator's collaborators.
type CoordinatorDeps struct {
	Routes   RouteSource
	Notifier NetNotifier
	Wireless WirelessSource
	Pinger   Pinger
	Store    APStore
	Sink     StatusSink
	Metrics  MetricsRecorder
	Resolve  ResolveFunc
	Log      *slog.Logger
}

// Coordinator owns the fused engine state: the active probe target, the
// gateway and wireless views, the BSSID transition window, and the last
// probe outcome. All event callbacks serialize on one mutex; Status is
// rebuilt as a whole under it and delivered to the sink after release.
type Coordinator struct {
	opts    CoordinatorOptions
	store   APStore
	sink    StatusSink
	metrics MetricsRecorder
	resolve ResolveFunc
	log     *slog.Logger

	gw     *GatewayTracker
	wifi   *WirelessTracker
	engine *Engine

	mu              sync.Mutex
	target          models.Target
	resolved        string
	resolutionErr   bool
	gateway         string
	netAvailable    bool
	bssid           string
	prevBssid       string
	ssid            string
	band            string
	signal          int
	capability      bool
	inTransition    bool
	transitionTimer *time.Timer
	lastOutcome     models.ProbeOutcome
	haveOutcome     bool
	status          models.Status
	ready           bool
	started         bool
	stopped         bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

var (
	_ GatewayEvents  = (*Coordinator)(nil)
	_ WirelessEvents = (*Coordinator)(nil)
	_ ProbeEvents    = (*Coordinator)(nil)
)

// NewCoordinator wires the trackers and the probe engine around a new
// coordinator. Start must be called before use.
func NewCoordinator(opts CoordinatorOptions, deps CoordinatorDeps) *Coordinator {
	opts.applyDefaults()
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	store := deps.Store
	if store == nil {
		store = noopStore{}
	}
	resolve := deps.Resolve
	if resolve == nil {
		resolve = resolveHost
	}

	c := &Coordinator{
		opts:       opts,
		store:      store,
		sink:       deps.Sink,
		metrics:    metrics,
		resolve:    resolve,
		log:        log,
		target:     models.GatewayTarget(),
		capability: true,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	c.gw = NewGatewayTracker(GatewayTrackerOptions{
		Routes:       deps.Routes,
		Notifier:     deps.Notifier,
		PollInterval: opts.GatewayPoll,
		SettleDelay:  opts.SettleDelay,
		Events:       c,
		Log:          log,
	})
	c.wifi = NewWirelessTracker(WirelessTrackerOptions{
		Source:       deps.Wireless,
		PollInterval: opts.WirelessPoll,
		QueryTimeout: opts.WirelessTimeout,
		SignalDelta:  opts.SignalDelta,
		Events:       c,
		Log:          log,
	})
	c.engine = NewEngine(EngineOptions{
		Pinger:           deps.Pinger,
		Gateway:          c.gw,
		FailureThreshold: opts.FailureThreshold,
		RetryInterval:    opts.RetryInterval,
		Events:           c,
		Log:              log,
	})
	return c
}

// Start brings the engine up: restores the persisted target, starts the
// trackers (a gateway tracker setup failure aborts and propagates), emits
// the initial Status, and begins the probe cadence.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	last := c.store.LastCustomTarget()

	if err := c.gw.Start(); err != nil {
		c.engine.Stop()
		return fmt.Errorf("start gateway tracker: %w", err)
	}
	if err := c.wifi.Start(); err != nil {
		c.engine.Stop()
		c.gw.Stop()
		return fmt.Errorf("start wireless tracker: %w", err)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		c.engine.Stop()
		c.wifi.Stop()
		c.gw.Stop()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.gateway = c.gw.CurrentGateway()
	c.netAvailable = c.gw.NetworkAvailable()
	snap := c.wifi.Current()
	c.bssid = snap.BSSID
	c.ssid = snap.SSID
	c.band = snap.Band
	c.signal = snap.SignalPercent
	c.capability = snap.CapabilityEnabled
	if last != "" {
		c.target = models.CustomTarget(last)
		c.resolved = ""
	} else {
		c.target = models.GatewayTarget()
		c.resolved = c.gateway
	}
	available := c.netAvailable
	c.mu.Unlock()

	if last != "" {
		c.log.Info("restored custom target", "host", last)
		c.resolveCustom(last)
	}

	c.mu.Lock()
	c.ready = true
	status := c.recomputeLocked()
	c.mu.Unlock()

	c.metrics.SetNetworkAvailable(available)
	c.emit(status)

	go c.run()
	return nil
}

// Stop tears the engine down in reverse dependency order: the probe cadence
// first, then the probe engine, then the trackers. Safe to call more than
// once; no events or Status emissions occur after it returns.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	started := c.started
	if c.transitionTimer != nil {
		c.transitionTimer.Stop()
		c.transitionTimer = nil
	}
	c.mu.Unlock()

	c.stopOnce.Do(func() { close(c.stopCh) })
	if !started {
		return
	}
	<-c.doneCh
	c.engine.Stop()
	c.wifi.Stop()
	c.gw.Stop()
	c.log.Info("coordinator stopped")
}

// Status returns the current fused status.
func (c *Coordinator) Status() models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Target returns the active probe target.
func (c *Coordinator) Target() models.Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Snapshot returns the full fused state for feed and UI rendering.
func (c *Coordinator) Snapshot() models.EngineSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.EngineSnapshot{
		Target:           c.target,
		ResolvedAddress:  c.resolved,
		ResolutionError:  c.resolutionErr,
		Gateway:          c.gateway,
		NetworkAvailable: c.netAvailable,
		Wireless: models.WirelessSnapshot{
			BSSID:             c.bssid,
			SSID:              c.ssid,
			Band:              c.band,
			SignalPercent:     c.signal,
			CapabilityEnabled: c.capability,
		},
		PreviousBSSID: c.prevBssid,
		InTransition:  c.inTransition,
		LastOutcome:   c.lastOutcome,
		HasOutcome:    c.haveOutcome,
		Status:        c.status,
		GeneratedAt:   time.Now().UTC(),
	}
}

// UseDefaultGateway switches probing back to the tracked default gateway and
// persists the choice.
func (c *Coordinator) UseDefaultGateway() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	c.target = models.GatewayTarget()
	c.resolved = c.gateway
	c.resolutionErr = false
	status := c.recomputeLocked()
	c.mu.Unlock()

	c.store.SetLastCustomTarget("")
	c.log.Info("target switched", "target", "gateway")
	c.emit(status)
	c.probeNow()
	return nil
}

// UseCustomHost switches probing to a user-supplied host. Resolution runs
// outside the lock; when it fails, the raw hostname is probed anyway and the
// status carries a DNS-specific degraded marker. The switch is never
// silently reverted.
func (c *Coordinator) UseCustomHost(host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return ErrEmptyHost
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	c.target = models.CustomTarget(host)
	c.resolved = ""
	c.resolutionErr = false
	c.mu.Unlock()

	c.store.SetLastCustomTarget(host)
	c.log.Info("target switched", "target", host)
	c.resolveCustom(host)
	c.probeNow()
	return nil
}

// resolveCustom resolves host and installs the result if the target has not
// been switched again meanwhile.
func (c *Coordinator) resolveCustom(host string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.ResolveTimeout)
	addr, err := c.resolve(ctx, host)
	cancel()

	c.mu.Lock()
	if c.stopped || c.target.Kind != models.TargetCustom || c.target.Host != host {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.resolved = host
		c.resolutionErr = true
	} else {
		c.resolved = addr
		c.resolutionErr = false
	}
	status := c.recomputeLocked()
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("custom host resolution failed", "host", host, "error", err)
	}
	c.emit(status)
}

// GatewayChanged implements GatewayEvents.
func (c *Coordinator) GatewayChanged(addr string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.gateway = addr
	followed := c.target.Kind == models.TargetGateway
	if followed {
		c.resolved = addr
		c.resolutionErr = false
	}
	status := c.recomputeLocked()
	c.mu.Unlock()

	c.emit(status)
	if followed && addr != "" {
		c.probeNow()
	}
}

// NetworkAvailabilityChanged implements GatewayEvents.
func (c *Coordinator) NetworkAvailabilityChanged(available bool) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.netAvailable = available
	status := c.recomputeLocked()
	c.mu.Unlock()

	c.metrics.SetNetworkAvailable(available)
	c.log.Info("network availability changed", "available", available)
	c.emit(status)
}

// BssidChanged implements WirelessEvents: enter the transition window,
// restart its reset timer, recolor the display. Deliberately no immediate
// probe; the normal cadence rides out the roam.
//
// The wireless tracker's first check runs synchronously inside Start, so an
// association reported before the coordinator is started is the initial
// state being seeded, not a roam; only changes after that open the window.
func (c *Coordinator) BssidChanged(old, new string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	roamed := c.started
	c.prevBssid = old
	c.bssid = new
	snap := c.wifi.Current()
	c.ssid = snap.SSID
	c.band = snap.Band
	c.signal = snap.SignalPercent
	c.capability = snap.CapabilityEnabled
	if roamed {
		c.inTransition = true
		if c.transitionTimer != nil {
			c.transitionTimer.Stop()
		}
		c.transitionTimer = time.AfterFunc(c.opts.TransitionWindow, c.endTransition)
	}
	status := c.recomputeLocked()
	c.mu.Unlock()

	if roamed {
		c.metrics.IncRoam()
	}
	if new != "" {
		c.store.RecordSeen(new)
	}
	c.log.Info("access point changed", "from", logAddr(old), "to", logAddr(new))
	c.emit(status)
}

// SignalChanged implements WirelessEvents.
func (c *Coordinator) SignalChanged(percent int) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.signal = percent
	status := c.recomputeLocked()
	c.mu.Unlock()

	c.emit(status)
}

// CapabilityChanged implements WirelessEvents.
func (c *Coordinator) CapabilityChanged(enabled bool) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.capability = enabled
	status := c.recomputeLocked()
	c.mu.Unlock()

	c.log.Info("wireless capability changed", "enabled", enabled)
	c.emit(status)
}

// ProbeCompleted implements ProbeEvents.
func (c *Coordinator) ProbeCompleted(outcome models.ProbeOutcome) {
	c.applyOutcome(outcome, nil)
}

// ProbeFailed implements ProbeEvents.
func (c *Coordinator) ProbeFailed(err error) {
	c.applyOutcome(models.ProbeOutcome{Kind: classifyPingError(err)}, err)
}

func (c *Coordinator) applyOutcome(outcome models.ProbeOutcome, err error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.lastOutcome = outcome
	c.haveOutcome = true
	suppressed := c.inTransition
	status := c.recomputeLocked()
	c.mu.Unlock()

	c.metrics.ObserveProbe(outcome)
	c.metrics.SetConsecutiveFailures(c.engine.Failures())

	// Roaming blips are expected; keep them out of the log, never out of
	// the status.
	if !suppressed {
		switch {
		case err != nil:
			c.log.Warn("probe error", "error", err)
		case outcome.Success:
			c.log.Debug("probe completed", "rtt_ms", outcome.LatencyMs)
		default:
			c.log.Warn("probe failed", "kind", string(outcome.Kind))
		}
	}
	c.emit(status)
}

// endTransition runs on the one-shot transition timer.
func (c *Coordinator) endTransition() {
	c.mu.Lock()
	if c.stopped || !c.inTransition {
		c.mu.Unlock()
		return
	}
	c.inTransition = false
	c.transitionTimer = nil
	status := c.recomputeLocked()
	c.mu.Unlock()

	c.emit(status)
	c.probeNow()
}

func (c *Coordinator) run() {
	defer close(c.doneCh)

	c.probeNow()

	ticker := time.NewTicker(c.opts.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.probeNow()
		case <-c.stopCh:
			return
		}
	}
}

// probeNow issues one probe of the current resolved address. With no
// address there is nothing to probe; the status already shows the degraded
// code for that state.
func (c *Coordinator) probeNow() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	addr := c.resolved
	c.mu.Unlock()

	if addr == "" {
		return
	}
	if err := c.engine.Probe(addr, c.opts.ProbeTimeout); err != nil && !errors.Is(err, ErrStopped) {
		c.log.Error("probe request rejected", "error", err)
	}
}

// recomputeLocked rebuilds the fused status. Callers hold c.mu.
func (c *Coordinator) recomputeLocked() models.Status {
	c.status = c.buildStatusLocked()
	return c.status
}

// emit delivers a status to the sink, outside the lock so a sink that calls
// back into the coordinator cannot deadlock.
func (c *Coordinator) emit(status models.Status) {
	c.mu.Lock()
	ready := c.ready && !c.stopped
	c.mu.Unlock()
	if !ready || c.sink == nil {
		return
	}
	c.sink.OnStatusChanged(status)
}
