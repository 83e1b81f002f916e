package monitor

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// GatewayEvents receives default-gateway change notifications. An empty
// address means no gateway is known.
type GatewayEvents interface {
	GatewayChanged(addr string)
	NetworkAvailabilityChanged(available bool)
}

// RouteSource answers gateway discovery queries. DefaultGateway returns the
// current next-hop address or an error when none can be determined;
// NetworkAvailable reports whether any usable interface is up.
type RouteSource interface {
	DefaultGateway() (string, error)
	NetworkAvailable() bool
}

// NetChange is one coarse network change notification.
type NetChange int

const (
	// NetUp signals an availability transition to true.
	NetUp NetChange = iota
	// NetDown signals an availability transition to false.
	NetDown
	// NetAddrChange signals that addressing changed while available.
	NetAddrChange
)

// NetNotifier delivers network change notifications. The channel is closed
// by Stop; the tracker's redundant poll covers anything a notifier misses.
type NetNotifier interface {
	Start() (<-chan NetChange, error)
	Stop()
}

// GatewayTrackerOptions configures a GatewayTracker.
type GatewayTrackerOptions struct {
	Routes       RouteSource
	Notifier     NetNotifier
	PollInterval time.Duration
	SettleDelay  time.Duration
	Events       GatewayEvents
	Log          *slog.Logger
}

// GatewayTracker keeps the current default gateway cached, re-discovering it
// on change notifications and on a redundant periodic poll. The gateway
// address is non-empty only while the network is available.
type GatewayTracker struct {
	routes   RouteSource
	notifier NetNotifier
	poll     time.Duration
	settle   time.Duration
	events   GatewayEvents
	log      *slog.Logger

	mu          sync.RWMutex
	gateway     string
	available   bool
	started     bool
	stopped     bool
	settleTimer *time.Timer

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewGatewayTracker configures a tracker; Start must be called before use.
func NewGatewayTracker(opts GatewayTrackerOptions) *GatewayTracker {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = time.Second
	}
	return &GatewayTracker{
		routes:   opts.Routes,
		notifier: opts.Notifier,
		poll:     opts.PollInterval,
		settle:   opts.SettleDelay,
		events:   opts.Events,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start performs one blocking discovery and begins monitoring. A failed
// discovery yields no gateway and is not an error; only a failed
// notification subscription aborts startup.
func (t *GatewayTracker) Start() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return ErrStopped
	}
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.available = t.routes.NetworkAvailable()
	t.mu.Unlock()

	t.refresh(false)

	ch, err := t.notifier.Start()
	if err != nil {
		return fmt.Errorf("subscribe to network changes: %w", err)
	}

	t.mu.Lock()
	t.started = true
	t.mu.Unlock()
	go t.run(ch)
	return nil
}

// Stop terminates monitoring. Safe to call more than once.
func (t *GatewayTracker) Stop() {
	t.mu.Lock()
	started := t.started
	t.stopped = true
	if t.settleTimer != nil {
		t.settleTimer.Stop()
		t.settleTimer = nil
	}
	t.mu.Unlock()

	t.stopOnce.Do(func() { close(t.stopCh) })
	if started {
		<-t.doneCh
	}
	t.notifier.Stop()
}

// CurrentGateway returns the cached gateway address, empty when unknown.
func (t *GatewayTracker) CurrentGateway() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gateway
}

// NetworkAvailable reports the cached availability state.
func (t *GatewayTracker) NetworkAvailable() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.available
}

// ForceRefresh re-runs discovery immediately and reports whether the cached
// value changed. The GatewayChanged event is re-emitted even when the value
// did not change, so callers can resynchronize downstream state.
func (t *GatewayTracker) ForceRefresh() (bool, error) {
	t.mu.RLock()
	stopped := t.stopped
	t.mu.RUnlock()
	if stopped {
		return false, ErrStopped
	}
	return t.refresh(true), nil
}

func (t *GatewayTracker) run(ch <-chan NetChange) {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				ch = nil
				continue
			}
			t.handleChange(ev)
		case <-ticker.C:
			t.refresh(false)
		case <-t.stopCh:
			return
		}
	}
}

func (t *GatewayTracker) handleChange(ev NetChange) {
	switch ev {
	case NetDown:
		t.cancelSettle()
		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return
		}
		t.available = false
		changed := t.gateway != ""
		t.gateway = ""
		t.mu.Unlock()

		t.log.Info("network unavailable")
		t.events.NetworkAvailabilityChanged(false)
		if changed {
			t.events.GatewayChanged("")
		}
	case NetUp:
		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return
		}
		t.available = true
		t.mu.Unlock()

		t.log.Info("network available", "settle_delay", t.settle)
		t.events.NetworkAvailabilityChanged(true)
		t.scheduleSettle()
	case NetAddrChange:
		t.refresh(false)
	}
}

// scheduleSettle delays the post-up refresh so a half-initialized interface
// is not read.
func (t *GatewayTracker) scheduleSettle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.settleTimer != nil {
		t.settleTimer.Stop()
	}
	t.settleTimer = time.AfterFunc(t.settle, func() {
		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return
		}
		t.settleTimer = nil
		t.mu.Unlock()
		t.refresh(false)
	})
}

func (t *GatewayTracker) cancelSettle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settleTimer != nil {
		t.settleTimer.Stop()
		t.settleTimer = nil
	}
}

func (t *GatewayTracker) refresh(forced bool) bool {
	t.mu.RLock()
	stopped, available := t.stopped, t.available
	t.mu.RUnlock()
	if stopped {
		return false
	}

	gw := ""
	if available {
		addr, err := t.routes.DefaultGateway()
		if err != nil {
			t.log.Warn("gateway discovery failed", "error", err)
		} else {
			gw = validGateway(addr)
		}
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return false
	}
	if !t.available {
		gw = ""
	}
	changed := gw != t.gateway
	t.gateway = gw
	t.mu.Unlock()

	if changed {
		t.log.Info("default gateway changed", "gateway", logAddr(gw))
	}
	if changed || forced {
		t.events.GatewayChanged(gw)
	}
	return changed
}

// validGateway filters out unparseable and all-zero gateway addresses.
func validGateway(addr string) string {
	ip := net.ParseIP(addr)
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
