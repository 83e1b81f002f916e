package monitor

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

type fakeWireless struct {
	mu     sync.Mutex
	output string
	err    error
	calls  int
}

func (f *fakeWireless) Query(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.output, f.err
}

func (f *fakeWireless) set(output string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.output = output
	f.err = err
}

func (f *fakeWireless) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type bssidPair struct {
	old, new string
}

type wirelessRecorder struct {
	bssids     chan bssidPair
	signals    chan int
	capability chan bool
}

func newWirelessRecorder() *wirelessRecorder {
	return &wirelessRecorder{
		bssids:     make(chan bssidPair, 16),
		signals:    make(chan int, 16),
		capability: make(chan bool, 16),
	}
}

func (r *wirelessRecorder) BssidChanged(old, new string) { r.bssids <- bssidPair{old, new} }

func (r *wirelessRecorder) SignalChanged(percent int) { r.signals <- percent }

func (r *wirelessRecorder) CapabilityChanged(enabled bool) { r.capability <- enabled }

func (r *wirelessRecorder) awaitBssid(t *testing.T, old, new string) {
	t.Helper()
	select {
	case got := <-r.bssids:
		if got.old != old || got.new != new {
			t.Fatalf("BssidChanged(%q, %q), want (%q, %q)", got.old, got.new, old, new)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for BssidChanged(%q, %q)", old, new)
	}
}

func apOutput(bssid, ssid string, signal int) string {
	return "    State                  : connected\n" +
		"    SSID                   : " + ssid + "\n" +
		"    BSSID                  : " + bssid + "\n" +
		"    Band                   : 5 GHz\n" +
		"    Signal                 : " + strconv.Itoa(signal) + "%\n"
}

func newTestWireless(src *fakeWireless, rec *wirelessRecorder) *WirelessTracker {
	return NewWirelessTracker(WirelessTrackerOptions{
		Source:       src,
		PollInterval: 10 * time.Millisecond,
		QueryTimeout: time.Second,
		SignalDelta:  5,
		Events:       rec,
		Log:          testLogger(),
	})
}

func TestWirelessTrackerReportsAssociation(t *testing.T) {
	src := &fakeWireless{output: apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 70)}
	rec := newWirelessRecorder()
	tr := newTestWireless(src, rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()

	rec.awaitBssid(t, "", "aa:bb:cc:dd:ee:01")
	snap := tr.Current()
	if snap.BSSID != "aa:bb:cc:dd:ee:01" || snap.SSID != "HomeNet" {
		t.Errorf("snapshot = %+v, want HomeNet association", snap)
	}
	if snap.Band != "5 GHz" || snap.SignalPercent != 70 {
		t.Errorf("snapshot = %+v, want 5 GHz at 70%%", snap)
	}
	if !snap.CapabilityEnabled {
		t.Error("CapabilityEnabled = false, want true")
	}
}

func TestWirelessTrackerDetectsRoamAndDisassociation(t *testing.T) {
	src := &fakeWireless{output: apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 70)}
	rec := newWirelessRecorder()
	tr := newTestWireless(src, rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()
	rec.awaitBssid(t, "", "aa:bb:cc:dd:ee:01")

	src.set(apOutput("aa:bb:cc:dd:ee:02", "HomeNet", 55), nil)
	rec.awaitBssid(t, "aa:bb:cc:dd:ee:01", "aa:bb:cc:dd:ee:02")

	src.set("    State   : disconnected\n", nil)
	rec.awaitBssid(t, "aa:bb:cc:dd:ee:02", "")
	if snap := tr.Current(); snap.BSSID != "" || snap.SignalPercent != 0 {
		t.Errorf("snapshot after disassociation = %+v, want cleared", snap)
	}
}

func TestWirelessTrackerSignalThreshold(t *testing.T) {
	src := &fakeWireless{output: apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 70)}
	rec := newWirelessRecorder()
	tr := newTestWireless(src, rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()
	rec.awaitBssid(t, "", "aa:bb:cc:dd:ee:01")

	// Within the threshold of the 70 baseline: no event.
	src.set(apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 74), nil)
	time.Sleep(60 * time.Millisecond)
	select {
	case got := <-rec.signals:
		t.Fatalf("unexpected SignalChanged(%d) inside threshold", got)
	default:
	}

	src.set(apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 80), nil)
	select {
	case got := <-rec.signals:
		if got != 80 {
			t.Fatalf("SignalChanged = %d, want 80", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SignalChanged")
	}

	// The baseline moved to 80; a swing back past it fires again.
	src.set(apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 73), nil)
	select {
	case got := <-rec.signals:
		if got != 73 {
			t.Fatalf("SignalChanged = %d, want 73", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for second SignalChanged")
	}
}

func TestWirelessTrackerRoamResetsSignalBaseline(t *testing.T) {
	src := &fakeWireless{output: apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 90)}
	rec := newWirelessRecorder()
	tr := newTestWireless(src, rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()
	rec.awaitBssid(t, "", "aa:bb:cc:dd:ee:01")

	// Roaming to a weaker AP is one BSSID event, not a signal event.
	src.set(apOutput("aa:bb:cc:dd:ee:02", "HomeNet", 40), nil)
	rec.awaitBssid(t, "aa:bb:cc:dd:ee:01", "aa:bb:cc:dd:ee:02")
	time.Sleep(60 * time.Millisecond)
	select {
	case got := <-rec.signals:
		t.Fatalf("unexpected SignalChanged(%d) after roam", got)
	default:
	}
}

func TestWirelessTrackerDeniedIsSticky(t *testing.T) {
	src := &fakeWireless{output: apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 70)}
	rec := newWirelessRecorder()
	tr := newTestWireless(src, rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()
	rec.awaitBssid(t, "", "aa:bb:cc:dd:ee:01")

	src.set("", ErrWirelessDenied)
	awaitBool(t, rec.capability, false)
	rec.awaitBssid(t, "aa:bb:cc:dd:ee:01", "")
	if tr.Current().CapabilityEnabled {
		t.Error("CapabilityEnabled = true, want false after denial")
	}

	// Repeat denials stay quiet.
	time.Sleep(60 * time.Millisecond)
	select {
	case got := <-rec.capability:
		t.Fatalf("unexpected CapabilityChanged(%v) on repeat denial", got)
	default:
	}

	// A later successful query restores the capability.
	src.set(apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 70), nil)
	awaitBool(t, rec.capability, true)
	rec.awaitBssid(t, "", "aa:bb:cc:dd:ee:01")
}

func TestWirelessTrackerTransientErrorKeepsCapability(t *testing.T) {
	src := &fakeWireless{output: apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 70)}
	rec := newWirelessRecorder()
	tr := newTestWireless(src, rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()
	rec.awaitBssid(t, "", "aa:bb:cc:dd:ee:01")

	src.set("", errors.New("wlan service restarting"))
	rec.awaitBssid(t, "aa:bb:cc:dd:ee:01", "")
	if !tr.Current().CapabilityEnabled {
		t.Error("CapabilityEnabled = false, want true on transient failure")
	}

	src.set(apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 70), nil)
	rec.awaitBssid(t, "", "aa:bb:cc:dd:ee:01")
}

func TestWirelessTrackerAbsentAdapterStopsPolling(t *testing.T) {
	src := &fakeWireless{err: ErrNoWireless}
	rec := newWirelessRecorder()
	tr := newTestWireless(src, rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()

	waitUntil(t, time.Second, func() bool { return src.callCount() >= 1 }, "first query")
	time.Sleep(60 * time.Millisecond)
	settled := src.callCount()
	time.Sleep(60 * time.Millisecond)
	if got := src.callCount(); got != settled {
		t.Errorf("queries continued after adapter absence: %d then %d", settled, got)
	}
	if !tr.Current().CapabilityEnabled {
		t.Error("adapter absence must not read as permission denial")
	}
}

func TestWirelessTrackerStopTwice(t *testing.T) {
	src := &fakeWireless{output: apOutput("aa:bb:cc:dd:ee:01", "HomeNet", 70)}
	tr := newTestWireless(src, newWirelessRecorder())

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tr.Stop()
	tr.Stop()
}

func TestWirelessTrackerStopWithoutStart(t *testing.T) {
	tr := newTestWireless(&fakeWireless{}, newWirelessRecorder())
	tr.Stop()
}
