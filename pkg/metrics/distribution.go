package metrics

import "github.com/prometheus/client_golang/prometheus"

// DistributionMetrics counts distribution engine outcomes per strategy.
type DistributionMetrics struct {
	assigned *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	moved    *prometheus.CounterVec
}

// NewDistributionMetrics registers the distribution metrics on the provided registerer.
func NewDistributionMetrics(reg prometheus.Registerer) *DistributionMetrics {
	if reg == nil {
		return &DistributionMetrics{}
	}
	assigned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atlas",
		Name:      "orders_assigned_total",
		Help:      "Orders assigned to agents, by strategy.",
	}, []string{"strategy"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atlas",
		Name:      "orders_skipped_total",
		Help:      "Orders skipped during distribution, by strategy.",
	}, []string{"strategy"})
	moved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atlas",
		Name:      "orders_rebalanced_total",
		Help:      "Orders moved between agents by workload balancing.",
	}, []string{"strategy"})
	reg.MustRegister(assigned, skipped, moved)
	return &DistributionMetrics{
		assigned: assigned,
		skipped:  skipped,
		moved:    moved,
	}
}

// AddAssigned records n orders assigned under the named strategy.
func (d *DistributionMetrics) AddAssigned(strategy string, n int) {
	if d == nil || d.assigned == nil || n <= 0 {
		return
	}
	d.assigned.WithLabelValues(normalizeLabel(strategy)).Add(float64(n))
}

// AddSkipped records n orders skipped under the named strategy.
func (d *DistributionMetrics) AddSkipped(strategy string, n int) {
	if d == nil || d.skipped == nil || n <= 0 {
		return
	}
	d.skipped.WithLabelValues(normalizeLabel(strategy)).Add(float64(n))
}

// AddMoved records n orders moved by the balancing strategy.
func (d *DistributionMetrics) AddMoved(strategy string, n int) {
	if d == nil || d.moved == nil || n <= 0 {
		return
	}
	d.moved.WithLabelValues(normalizeLabel(strategy)).Add(float64(n))
}
