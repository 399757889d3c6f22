package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus collectors updated by the broker.
type Metrics struct {
	Registrations    *prometheus.CounterVec
	Removals         *prometheus.CounterVec
	Listeners        *prometheus.GaugeVec
	Triggered        *prometheus.CounterVec
	ListenerFailures *prometheus.CounterVec
	Queued           prometheus.Counter
	QueueDepth       prometheus.Gauge
	DrainDuration    prometheus.Histogram
	DrainOverrun     prometheus.Histogram
	DrainedEvents    prometheus.Counter
	Violations       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg yields working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "registrations_total",
			Help:      "Listener registration attempts by result",
		}, []string{"result"}),
		Removals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "removals_total",
			Help:      "Listener removal attempts by result",
		}, []string{"result"}),
		Listeners: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "broker",
			Name:      "listeners",
			Help:      "Registered listeners per event type",
		}, []string{"type"}),
		Triggered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "events_triggered_total",
			Help:      "Events dispatched to listeners by type",
		}, []string{"type"}),
		ListenerFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "listener_failures_total",
			Help:      "Listener invocations that panicked or were skipped by an open breaker",
		}, []string{"reason"}),
		Queued: f.NewCounter(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "events_queued_total",
			Help:      "Events accepted into the pending queue",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "broker",
			Name:      "queue_depth",
			Help:      "Events waiting in the pending queue after the last mutation",
		}),
		DrainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "broker",
			Name:      "drain_duration_seconds",
			Help:      "Wall-clock time spent in one drain pass",
			Buckets:   []float64{.0005, .001, .002, .004, .008, .016, .032, .064, .128},
		}),
		DrainOverrun: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "broker",
			Name:      "drain_overrun_seconds",
			Help:      "Time a drain pass ran past its budget",
			Buckets:   []float64{.00001, .0001, .0005, .001, .005, .01, .05},
		}),
		DrainedEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "events_drained_total",
			Help:      "Events taken off the pending queue and dispatched",
		}),
		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "contract_violations_total",
			Help:      "Rejected calls that broke a precondition",
		}, []string{"op"}),
	}
}
