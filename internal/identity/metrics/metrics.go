package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for remote identity validation.
type Metrics struct {
	// Validation outcomes by kind ("ok" on success)
	Outcomes *prometheus.CounterVec

	// Remote call latency, including failures
	Latency prometheus.Histogram
}

// New registers the identity metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_identity_validations_total",
			Help: "Total credential validations by outcome",
		}, []string{"outcome"}),

		Latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "verigate_identity_validate_duration_seconds",
			Help:    "Duration of remote identity validation calls",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}),
	}
}

// IncrementOutcome records one validation outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveLatency records the duration of one remote call.
func (m *Metrics) ObserveLatency(d time.Duration) {
	if m != nil {
		m.Latency.Observe(d.Seconds())
	}
}
