package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

// WirelessEvents receives wireless association change notifications.
type WirelessEvents interface {
	// BssidChanged fires on any BSSID difference between polls, including
	// transitions to and from "" (not associated).
	BssidChanged(old, new string)
	// SignalChanged fires when the signal moved more than the configured
	// threshold while the BSSID stayed the same.
	SignalChanged(percent int)
	// CapabilityChanged fires when the platform starts or stops denying
	// wireless queries.
	CapabilityChanged(enabled bool)
}

// WirelessSource queries the OS wireless facility and returns its free-form
// text output. Implementations report permission denial as ErrWirelessDenied
// and a missing adapter as ErrNoWireless.
type WirelessSource interface {
	Query(ctx context.Context) (string, error)
}

// Wireless source classification sentinels.
var (
	ErrWirelessDenied = errors.New("wireless query denied")
	ErrNoWireless     = errors.New("no wireless interface")
)

// WirelessTrackerOptions configures a WirelessTracker.
type WirelessTrackerOptions struct {
	Source       WirelessSource
	PollInterval time.Duration
	QueryTimeout time.Duration
	SignalDelta  int
	Events       WirelessEvents
	Log          *slog.Logger
}

// WirelessTracker polls the wireless facility, diffs the association between
// polls, and publishes immutable snapshots. Permission denial is a sticky
// capability-disabled state re-checked on the normal cadence; a missing
// adapter disables querying for the rest of the session.
type WirelessTracker struct {
	source WirelessSource
	poll   time.Duration
	qtmo   time.Duration
	delta  int
	events WirelessEvents
	log    *slog.Logger

	mu       sync.RWMutex
	snap     models.WirelessSnapshot
	baseline int
	absent   bool
	started  bool
	stopped  bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWirelessTracker configures a tracker; Start must be called before use.
func NewWirelessTracker(opts WirelessTrackerOptions) *WirelessTracker {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 5 * time.Second
	}
	if opts.SignalDelta <= 0 {
		opts.SignalDelta = 5
	}
	return &WirelessTracker{
		source: opts.Source,
		poll:   opts.PollInterval,
		qtmo:   opts.QueryTimeout,
		delta:  opts.SignalDelta,
		events: opts.Events,
		log:    log,
		snap:   models.WirelessSnapshot{CapabilityEnabled: true},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start performs one immediate check and begins polling. Calling Start on a
// running tracker is a no-op.
func (t *WirelessTracker) Start() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return ErrStopped
	}
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	t.mu.Unlock()

	t.check()
	go t.run()
	return nil
}

// Stop terminates polling. Safe to call more than once.
func (t *WirelessTracker) Stop() {
	t.mu.Lock()
	started := t.started
	t.stopped = true
	t.mu.Unlock()

	t.stopOnce.Do(func() { close(t.stopCh) })
	if started {
		<-t.doneCh
	}
}

// Current returns a snapshot of the tracked association.
func (t *WirelessTracker) Current() models.WirelessSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

func (t *WirelessTracker) run() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.check()
		case <-t.stopCh:
			return
		}
	}
}

func (t *WirelessTracker) check() {
	t.mu.RLock()
	stopped, absent := t.stopped, t.absent
	t.mu.RUnlock()
	if stopped || absent {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.qtmo)
	output, err := t.source.Query(ctx)
	cancel()

	switch {
	case errors.Is(err, ErrNoWireless):
		t.markAbsent()
	case errors.Is(err, ErrWirelessDenied):
		t.disableCapability()
	case err != nil:
		t.log.Warn("wireless query failed", "error", err)
		t.applyReading(wirelessReading{}, false)
	default:
		t.applyReading(parseWireless(output), true)
	}
}

// markAbsent records permanent adapter absence for this session.
func (t *WirelessTracker) markAbsent() {
	t.mu.Lock()
	if t.stopped || t.absent {
		t.mu.Unlock()
		return
	}
	t.absent = true
	old := t.snap.BSSID
	t.clearAssociationLocked()
	t.mu.Unlock()

	t.log.Info("no wireless interface, disabling wireless tracking")
	if old != "" {
		t.events.BssidChanged(old, "")
	}
}

func (t *WirelessTracker) disableCapability() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	wasEnabled := t.snap.CapabilityEnabled
	t.snap.CapabilityEnabled = false
	old := t.snap.BSSID
	t.clearAssociationLocked()
	t.mu.Unlock()

	if wasEnabled {
		t.log.Warn("wireless query denied, capability disabled")
		t.events.CapabilityChanged(false)
	}
	if old != "" {
		t.events.BssidChanged(old, "")
	}
}

// applyReading diffs a poll result against the tracked state. queryOK is
// false for transient failures, which clear the association but never touch
// the capability flag.
func (t *WirelessTracker) applyReading(r wirelessReading, queryOK bool) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if !queryOK && !t.snap.CapabilityEnabled {
		t.mu.Unlock()
		return
	}

	reenabled := queryOK && !t.snap.CapabilityEnabled
	if queryOK {
		t.snap.CapabilityEnabled = true
	}

	old := t.snap.BSSID
	changed := r.BSSID != old
	signalMoved := false

	t.snap.BSSID = r.BSSID
	t.snap.SSID = r.SSID
	t.snap.Band = r.Band
	t.snap.SignalPercent = r.Signal

	if changed {
		t.baseline = r.Signal
	} else if r.BSSID != "" && abs(r.Signal-t.baseline) > t.delta {
		t.baseline = r.Signal
		signalMoved = true
	}
	t.mu.Unlock()

	if reenabled {
		t.log.Info("wireless capability restored")
		t.events.CapabilityChanged(true)
	}
	if changed {
		t.log.Info("bssid changed", "from", logAddr(old), "to", logAddr(r.BSSID))
		t.events.BssidChanged(old, r.BSSID)
	} else if signalMoved {
		t.events.SignalChanged(r.Signal)
	}
}

func (t *WirelessTracker) clearAssociationLocked() {
	t.snap.BSSID = ""
	t.snap.SSID = ""
	t.snap.Band = ""
	t.snap.SignalPercent = 0
	t.baseline = 0
}
