package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/monitor"
)

// Collector bundles the engine's Prometheus metrics and implements the
// monitor.MetricsRecorder interface so the coordinator can drive it
// directly. All recording methods are nil-safe.
type Collector struct {
	gatherer prometheus.Gatherer

	ProbeDurations      prometheus.Histogram
	Probes              *prometheus.CounterVec
	ConsecutiveFailures prometheus.Gauge
	NetworkAvailable    prometheus.Gauge
	Roams               prometheus.Counter
}

var _ monitor.MetricsRecorder = (*Collector)(nil)

// New registers the engine metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ping_probe_duration_seconds",
		Help:    "Round-trip time of successful probes in seconds.",
		Buckets: []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}), "ping_probe_duration_seconds")
	if err != nil {
		return nil, err
	}

	probes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ping_probes_total",
		Help: "Total completed probes, labeled by result.",
	}, []string{"result"})
	probes, err = registerCounterVec(reg, probes, "ping_probes_total")
	if err != nil {
		return nil, err
	}

	failures, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ping_consecutive_failures",
		Help: "Current run of consecutive probe failures.",
	}), "ping_consecutive_failures")
	if err != nil {
		return nil, err
	}

	available, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ping_network_available",
		Help: "Whether any usable network interface is up (1) or not (0).",
	}), "ping_network_available")
	if err != nil {
		return nil, err
	}

	roams, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ping_wifi_roams_total",
		Help: "Total BSSID changes observed, including disassociations.",
	}), "ping_wifi_roams_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:            gatherer,
		ProbeDurations:      durations,
		Probes:              probes,
		ConsecutiveFailures: failures,
		NetworkAvailable:    available,
		Roams:               roams,
	}, nil
}

// ObserveProbe records one finished probe.
func (c *Collector) ObserveProbe(outcome models.ProbeOutcome) {
	if c == nil {
		return
	}
	if c.Probes != nil {
		c.Probes.WithLabelValues(resultLabel(outcome)).Inc()
	}
	if outcome.Success && c.ProbeDurations != nil {
		c.ProbeDurations.Observe(float64(outcome.LatencyMs) / 1000)
	}
}

// SetNetworkAvailable records the availability flag.
func (c *Collector) SetNetworkAvailable(available bool) {
	if c == nil || c.NetworkAvailable == nil {
		return
	}
	if available {
		c.NetworkAvailable.Set(1)
	} else {
		c.NetworkAvailable.Set(0)
	}
}

// SetConsecutiveFailures records the current failure run length.
func (c *Collector) SetConsecutiveFailures(n int) {
	if c == nil || c.ConsecutiveFailures == nil {
		return
	}
	c.ConsecutiveFailures.Set(float64(n))
}

// IncRoam counts one BSSID change.
func (c *Collector) IncRoam() {
	if c == nil || c.Roams == nil {
		return
	}
	c.Roams.Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func resultLabel(outcome models.ProbeOutcome) string {
	if outcome.Success {
		return "success"
	}
	if outcome.Kind == "" {
		return string(models.FailOther)
	}
	return string(outcome.Kind)
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
