package smf

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for reconciliations. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	reconciles *prometheus.CounterVec
	refreshes  prometheus.Counter
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smf",
			Name:      "reconciles_total",
			Help:      "Reconciliations by action and result.",
		}, []string{"action", "result"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smf",
			Name:      "manifest_import_refreshes_total",
			Help:      "Synchronous manifest-import disable/enable cycles issued.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smf",
			Name:      "reconcile_duration_seconds",
			Help:      "Wall time of reconciliations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}

	for _, c := range []prometheus.Collector{m.reconciles, m.refreshes, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeReconcile(action Action, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.reconciles.WithLabelValues(action.String(), result).Inc()
	m.duration.WithLabelValues(action.String()).Observe(d.Seconds())
}

func (m *Metrics) observeRefresh() {
	if m == nil {
		return
	}
	m.refreshes.Inc()
}
