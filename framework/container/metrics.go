package container

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes container activity as Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	resolutions         *prometheus.CounterVec
	constructions       *prometheus.CounterVec
	constructionSeconds *prometheus.HistogramVec
	openScopes          prometheus.Gauge
	disposalFailures    prometheus.Counter
}

// Outcome labels for dicontainer_resolutions_total.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// NewMetrics creates the container collectors and registers them with reg.
// Pass nil to create unregistered collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dicontainer",
			Name:      "resolutions_total",
			Help:      "Root resolutions by scope of the root binding and outcome.",
		}, []string{"scope", "outcome"}),
		constructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dicontainer",
			Name:      "constructions_total",
			Help:      "Instances built by construction strategies, by scope.",
		}, []string{"scope"}),
		constructionSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dicontainer",
			Name:      "construction_seconds",
			Help:      "Time spent in construction strategies, including dependencies.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"scope"}),
		openScopes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dicontainer",
			Name:      "open_request_scopes",
			Help:      "Request scopes currently open.",
		}),
		disposalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dicontainer",
			Name:      "disposal_failures_total",
			Help:      "Disposal hooks that returned an error or panicked.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.resolutions, m.constructions, m.constructionSeconds, m.openScopes, m.disposalFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) resolved(s Scope, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.resolutions.WithLabelValues(s.String(), outcome).Inc()
}

func (m *Metrics) constructed(s Scope, took time.Duration) {
	if m == nil {
		return
	}
	m.constructions.WithLabelValues(s.String()).Inc()
	m.constructionSeconds.WithLabelValues(s.String()).Observe(took.Seconds())
}

func (m *Metrics) scopeOpened() {
	if m != nil {
		m.openScopes.Inc()
	}
}

func (m *Metrics) scopeClosed() {
	if m != nil {
		m.openScopes.Dec()
	}
}

func (m *Metrics) disposalFailed() {
	if m != nil {
		m.disposalFailures.Inc()
	}
}
