package monitor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

// ProbeEvents receives probe results. Exactly one event fires per accepted
// Probe call: ProbeCompleted for a finished probe (successful or not),
// ProbeFailed when the attempt itself errored.
type ProbeEvents interface {
	ProbeCompleted(outcome models.ProbeOutcome)
	ProbeFailed(err error)
}

// Pinger sends one liveness probe. The context carries the probe deadline.
type Pinger interface {
	Ping(ctx context.Context, address string, timeout time.Duration) (models.ProbeOutcome, error)
}

// GatewayRefresher is the slice of the gateway tracker the escalation path
// needs.
type GatewayRefresher interface {
	ForceRefresh() (bool, error)
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	Pinger           Pinger
	Gateway          GatewayRefresher
	FailureThreshold int
	RetryInterval    time.Duration
	Events           ProbeEvents
	Log              *slog.Logger
}

// Engine sends liveness probes, one in flight at a time. Repeated failures
// escalate into a slow retry timer that forces gateway re-discovery: the
// assumption is that a wall of failures usually means the gateway moved, not
// that the destination died.
type Engine struct {
	pinger    Pinger
	gw        GatewayRefresher
	threshold int
	retry     time.Duration
	events    ProbeEvents
	log       *slog.Logger

	mu         sync.Mutex
	inFlight   bool
	failures   int
	retryTimer *time.Timer
	stopped    bool

	wg sync.WaitGroup
}

// NewEngine configures a probe engine. It has no loop of its own; the
// coordinator drives it on the probe cadence.
func NewEngine(opts EngineOptions) *Engine {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 10 * time.Second
	}
	return &Engine{
		pinger:    opts.Pinger,
		gw:        opts.Gateway,
		threshold: opts.FailureThreshold,
		retry:     opts.RetryInterval,
		events:    opts.Events,
		log:       log,
	}
}

// Probe sends one probe to address. At most one probe is in flight
// system-wide; a request while one is active is a silent no-op, since the
// next cadence tick supersedes it anyway. Contract violations are rejected
// synchronously before any network activity.
func (e *Engine) Probe(address string, timeout time.Duration) error {
	if strings.TrimSpace(address) == "" {
		return ErrEmptyAddress
	}
	if timeout <= 0 {
		return ErrInvalidTimeout
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	if e.inFlight {
		e.mu.Unlock()
		return nil
	}
	e.inFlight = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.execute(address, timeout)
	return nil
}

// Failures returns the current consecutive-failure count.
func (e *Engine) Failures() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures
}

// Stop cancels the retry timer and waits out any in-flight probe. Safe to
// call more than once; no events fire after Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	if e.retryTimer != nil {
		e.retryTimer.Stop()
		e.retryTimer = nil
	}
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Engine) execute(address string, timeout time.Duration) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	outcome, err := e.pinger.Ping(ctx, address, timeout)
	cancel()

	e.mu.Lock()
	e.inFlight = false
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if err != nil || !outcome.Success {
		e.failures++
		if e.failures == e.threshold && e.retryTimer == nil {
			e.log.Warn("consecutive probe failures, scheduling gateway refresh",
				"failures", e.failures, "retry_interval", e.retry)
			e.retryTimer = time.AfterFunc(e.retry, e.escalate)
		}
	} else {
		e.failures = 0
		if e.retryTimer != nil {
			e.retryTimer.Stop()
			e.retryTimer = nil
		}
	}
	e.mu.Unlock()

	// Stop may have landed between the bookkeeping and the emit; a torn-down
	// engine swallows the event.
	e.mu.Lock()
	stopped := e.stopped
	e.mu.Unlock()
	if stopped {
		return
	}

	if err != nil {
		e.events.ProbeFailed(err)
		return
	}
	e.events.ProbeCompleted(outcome)
}

// escalate runs on the retry timer: force a gateway refresh and re-arm until
// a success or a changed gateway resets the failure count.
func (e *Engine) escalate() {
	e.mu.Lock()
	if e.stopped || e.failures < e.threshold {
		e.retryTimer = nil
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	changed, err := e.gw.ForceRefresh()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		e.retryTimer = nil
		return
	}
	if err != nil {
		e.retryTimer = nil
		return
	}
	if changed {
		e.log.Info("gateway changed during failure escalation, resetting failure count")
		e.failures = 0
		e.retryTimer = nil
		return
	}
	e.retryTimer = time.AfterFunc(e.retry, e.escalate)
}
