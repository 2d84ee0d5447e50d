// Package metrics exposes processor and voting counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"civic-ledger/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sup"

// LedgerMetrics implements ports.LedgerMetrics.
type LedgerMetrics struct {
	registry *prometheus.Registry

	intents     *prometheus.CounterVec
	processTime *prometheus.HistogramVec
	replays     prometheus.Counter
	voteWeight  prometheus.Counter
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *LedgerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &LedgerMetrics{
		registry: reg,
		intents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "intents_total",
			Help:      "Intents handled by the transaction processor, by type and outcome",
		}, []string{"type", "outcome"}),
		processTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "process_seconds",
			Help:      "Time spent processing an intent",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		replays: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "idempotent_replays_total",
			Help:      "Intents answered from the idempotency log",
		}),
		voteWeight: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "weight_total",
			Help:      "Total vote weight cast",
		}),
	}
}

func (m *LedgerMetrics) ObserveIntent(txType domain.TransactionType, outcome string, elapsed time.Duration) {
	m.intents.WithLabelValues(string(txType), outcome).Inc()
	m.processTime.WithLabelValues(string(txType)).Observe(elapsed.Seconds())
}

func (m *LedgerMetrics) IncReplay() {
	m.replays.Inc()
}

func (m *LedgerMetrics) AddVoteWeight(weight int) {
	if weight > 0 {
		m.voteWeight.Add(float64(weight))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *LedgerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Noop discards every observation. It stands in when metrics.enabled is false.
type Noop struct{}

func (Noop) ObserveIntent(domain.TransactionType, string, time.Duration) {}
func (Noop) IncReplay()                                                  {}
func (Noop) AddVoteWeight(int)                                           {}
