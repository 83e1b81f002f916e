package monitor

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRoutes struct {
	mu        sync.Mutex
	gateway   string
	err       error
	available bool
	calls     int
}

func (f *fakeRoutes) DefaultGateway() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.gateway, f.err
}

func (f *fakeRoutes) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRoutes) NetworkAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeRoutes) set(gateway string, available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gateway = gateway
	f.available = available
	f.err = nil
}

type fakeNotifier struct {
	ch       chan NetChange
	startErr error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan NetChange, 8)}
}

func (f *fakeNotifier) Start() (<-chan NetChange, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.ch, nil
}

func (f *fakeNotifier) Stop() {}

func (f *fakeNotifier) push(ev NetChange) { f.ch <- ev }

type gatewayRecorder struct {
	gateways     chan string
	availability chan bool
}

func newGatewayRecorder() *gatewayRecorder {
	return &gatewayRecorder{
		gateways:     make(chan string, 16),
		availability: make(chan bool, 16),
	}
}

func (r *gatewayRecorder) GatewayChanged(addr string) { r.gateways <- addr }

func (r *gatewayRecorder) NetworkAvailabilityChanged(available bool) { r.availability <- available }

func newTestTracker(routes *fakeRoutes, notifier *fakeNotifier, rec *gatewayRecorder) *GatewayTracker {
	return NewGatewayTracker(GatewayTrackerOptions{
		Routes:       routes,
		Notifier:     notifier,
		PollInterval: 20 * time.Millisecond,
		SettleDelay:  5 * time.Millisecond,
		Events:       rec,
		Log:          testLogger(),
	})
}

func TestGatewayTrackerInitialDiscovery(t *testing.T) {
	routes := &fakeRoutes{gateway: "192.168.1.1", available: true}
	rec := newGatewayRecorder()
	tr := newTestTracker(routes, newFakeNotifier(), rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()

	awaitString(t, rec.gateways, "192.168.1.1")
	if got := tr.CurrentGateway(); got != "192.168.1.1" {
		t.Errorf("CurrentGateway = %q, want 192.168.1.1", got)
	}
	if !tr.NetworkAvailable() {
		t.Error("NetworkAvailable = false, want true")
	}
}

func TestGatewayTrackerStartFailsWhenNotifierFails(t *testing.T) {
	notifier := newFakeNotifier()
	notifier.startErr = errors.New("subscribe refused")
	tr := newTestTracker(&fakeRoutes{available: true}, notifier, newGatewayRecorder())

	if err := tr.Start(); err == nil {
		t.Fatal("Start succeeded, want error")
	}
	tr.Stop()
}

func TestGatewayTrackerNetworkDownClearsGateway(t *testing.T) {
	routes := &fakeRoutes{gateway: "192.168.1.1", available: true}
	notifier := newFakeNotifier()
	rec := newGatewayRecorder()
	tr := newTestTracker(routes, notifier, rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()
	awaitString(t, rec.gateways, "192.168.1.1")

	routes.set("", false)
	notifier.push(NetDown)

	awaitBool(t, rec.availability, false)
	awaitString(t, rec.gateways, "")
	if got := tr.CurrentGateway(); got != "" {
		t.Errorf("CurrentGateway after down = %q, want empty", got)
	}
	if tr.NetworkAvailable() {
		t.Error("NetworkAvailable = true after down event")
	}
}

func TestGatewayTrackerNetworkUpRefreshesAfterSettle(t *testing.T) {
	routes := &fakeRoutes{available: false}
	notifier := newFakeNotifier()
	rec := newGatewayRecorder()
	tr := newTestTracker(routes, notifier, rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()

	routes.set("10.0.0.1", true)
	notifier.push(NetUp)

	awaitBool(t, rec.availability, true)
	awaitString(t, rec.gateways, "10.0.0.1")
}

func TestGatewayTrackerAddrChangeTriggersRefresh(t *testing.T) {
	routes := &fakeRoutes{gateway: "192.168.1.1", available: true}
	notifier := newFakeNotifier()
	rec := newGatewayRecorder()
	tr := newTestTracker(routes, notifier, rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()
	awaitString(t, rec.gateways, "192.168.1.1")

	routes.set("192.168.1.254", true)
	notifier.push(NetAddrChange)

	awaitString(t, rec.gateways, "192.168.1.254")
}

func TestGatewayTrackerPollPicksUpChange(t *testing.T) {
	routes := &fakeRoutes{gateway: "192.168.1.1", available: true}
	rec := newGatewayRecorder()
	tr := newTestTracker(routes, newFakeNotifier(), rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()
	awaitString(t, rec.gateways, "192.168.1.1")

	// No notification, only the redundant poll sees this one.
	routes.set("192.168.2.1", true)
	awaitString(t, rec.gateways, "192.168.2.1")
}

func TestGatewayTrackerForceRefreshReEmitsUnchanged(t *testing.T) {
	routes := &fakeRoutes{gateway: "192.168.1.1", available: true}
	rec := newGatewayRecorder()
	tr := NewGatewayTracker(GatewayTrackerOptions{
		Routes:       routes,
		Notifier:     newFakeNotifier(),
		PollInterval: time.Hour,
		SettleDelay:  time.Millisecond,
		Events:       rec,
		Log:          testLogger(),
	})

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()
	awaitString(t, rec.gateways, "192.168.1.1")

	changed, err := tr.ForceRefresh()
	if err != nil {
		t.Fatalf("ForceRefresh failed: %v", err)
	}
	if changed {
		t.Error("ForceRefresh reported change for unchanged gateway")
	}
	awaitString(t, rec.gateways, "192.168.1.1")

	routes.set("172.16.0.1", true)
	changed, err = tr.ForceRefresh()
	if err != nil {
		t.Fatalf("ForceRefresh failed: %v", err)
	}
	if !changed {
		t.Error("ForceRefresh missed a changed gateway")
	}
	awaitString(t, rec.gateways, "172.16.0.1")
}

func TestGatewayTrackerIgnoresInvalidGateway(t *testing.T) {
	tests := []struct {
		name string
		addr string
	}{
		{"unspecified", "0.0.0.0"},
		{"garbage", "not-an-ip"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes := &fakeRoutes{gateway: tt.addr, available: true}
			rec := newGatewayRecorder()
			tr := newTestTracker(routes, newFakeNotifier(), rec)

			if err := tr.Start(); err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			defer tr.Stop()

			if got := tr.CurrentGateway(); got != "" {
				t.Errorf("CurrentGateway = %q, want empty", got)
			}
			select {
			case addr := <-rec.gateways:
				t.Errorf("unexpected gateway event %q", addr)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestGatewayTrackerDiscoveryErrorYieldsNoGateway(t *testing.T) {
	routes := &fakeRoutes{err: errors.New("no route table"), available: true}
	rec := newGatewayRecorder()
	tr := newTestTracker(routes, newFakeNotifier(), rec)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()

	if got := tr.CurrentGateway(); got != "" {
		t.Errorf("CurrentGateway = %q, want empty on discovery error", got)
	}
}

func TestGatewayTrackerStopTwice(t *testing.T) {
	routes := &fakeRoutes{gateway: "192.168.1.1", available: true}
	tr := newTestTracker(routes, newFakeNotifier(), newGatewayRecorder())

	if err := tr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tr.Stop()
	tr.Stop()

	if _, err := tr.ForceRefresh(); !errors.Is(err, ErrStopped) {
		t.Errorf("ForceRefresh after Stop = %v, want ErrStopped", err)
	}
}

func TestGatewayTrackerStopWithoutStart(t *testing.T) {
	tr := newTestTracker(&fakeRoutes{}, newFakeNotifier(), newGatewayRecorder())
	tr.Stop()
}
