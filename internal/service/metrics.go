package service

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the service's prometheus collectors.
type Metrics struct {
	Calculations *prometheus.CounterVec // by outcome: ok, depth_warning, failed
	Audits       *prometheus.CounterVec // by status
	Overrides    prometheus.Counter
	Duration     prometheus.Histogram
	Aggregates   prometheus.Counter
}

const (
	outcomeOK           = "ok"
	outcomeDepthWarning = "depth_warning"
	outcomeFailed       = "failed"
)

// NewMetrics builds the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cabinetcalc",
			Name:      "cabinet_calculations_total",
			Help:      "Cabinet dimension calculations by outcome.",
		}, []string{"outcome"}),
		Audits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cabinetcalc",
			Name:      "audits_recorded_total",
			Help:      "Calculation audits appended by status.",
		}, []string{"status"}),
		Overrides: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cabinetcalc",
			Name:      "audit_overrides_total",
			Help:      "Audits annotated with a manual override.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cabinetcalc",
			Name:      "cabinet_calculation_seconds",
			Help:      "Time to resolve, calculate and persist one cabinet.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		Aggregates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cabinetcalc",
			Name:      "complexity_aggregates_saved_total",
			Help:      "Composite complexity aggregates recomputed and saved.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Calculations, m.Audits, m.Overrides, m.Duration, m.Aggregates} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}
