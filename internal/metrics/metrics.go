// Package metrics exposes the panel's Prometheus instrumentation.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the panel registers.
type Metrics struct {
	LinkConnects      prometheus.Counter
	LinkFailures      prometheus.Counter
	EventsProcessed   *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	BroadcastsSent    prometheus.Counter
	BroadcastsDropped prometheus.Counter
	SessionsConnected prometheus.Gauge
	Commands          *prometheus.CounterVec
}

var (
	once sync.Once
	inst *Metrics
)

// Get returns the process-wide metrics, registering them on first use.
func Get() *Metrics {
	once.Do(func() {
		inst = newMetrics()
	})
	return inst
}

func newMetrics() *Metrics {
	return &Metrics{
		LinkConnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "ami",
			Name:      "connects_total",
			Help:      "Successful control-channel connections",
		}),
		LinkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "ami",
			Name:      "failures_total",
			Help:      "Control-channel connection failures and link errors",
		}),
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "events",
			Name:      "processed_total",
			Help:      "Normalized exchange events by kind",
		}, []string{"kind"}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Raw exchange events dropped by the normalizer",
		}),
		BroadcastsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "broadcast",
			Name:      "sent_total",
			Help:      "Messages delivered to operator sessions",
		}),
		BroadcastsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "broadcast",
			Name:      "dropped_total",
			Help:      "Messages dropped because a session could not keep up",
		}),
		SessionsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "panel",
			Subsystem: "sessions",
			Name:      "connected",
			Help:      "Authenticated operator sessions",
		}),
		Commands: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "commands",
			Name:      "total",
			Help:      "Operator commands by action",
		}, []string{"action"}),
	}
}
