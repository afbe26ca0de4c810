package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Record store operations by op ("load", "upsert", "remove") and result
	StoreOps *prometheus.CounterVec

	// Record store latency by op
	StoreLatency *prometheus.HistogramVec

	// Duplicate record messages deleted during upsert
	StoreCompactions prometheus.Counter

	// Number of records held in the cache
	CachedRecords prometheus.Gauge

	// Credential submissions by outcome ("accepted" or a failure kind)
	Submissions *prometheus.CounterVec

	// Gate decisions by reason ("allowed" when permitted)
	GateDecisions *prometheus.CounterVec

	// Stale-record revalidations by outcome
	Revalidations *prometheus.CounterVec

	// Onboarding prompts sent to new members
	OnboardingPrompts prometheus.Counter
}

// New registers the verification metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StoreOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_store_operations_total",
			Help: "Record store operations by op and result",
		}, []string{"op", "result"}),

		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verigate_store_operation_duration_seconds",
			Help:    "Duration of record store operations including chat round trips",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),

		StoreCompactions: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigate_store_compactions_total",
			Help: "Duplicate record messages removed during upsert",
		}),

		CachedRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "verigate_cache_records",
			Help: "Records currently held in the verification cache",
		}),

		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_submissions_total",
			Help: "Credential submissions by outcome",
		}, []string{"outcome"}),

		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_gate_decisions_total",
			Help: "Gate checks by decision",
		}, []string{"decision"}),

		Revalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_revalidations_total",
			Help: "Revalidations of stale records by outcome",
		}, []string{"outcome"}),

		OnboardingPrompts: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigate_onboarding_prompts_total",
			Help: "Onboarding prompts sent to joining members",
		}),
	}
}

// ObserveStoreOp records one record store operation.
func (m *Metrics) ObserveStoreOp(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOps.WithLabelValues(op, result).Inc()
	m.StoreLatency.WithLabelValues(op).Observe(d.Seconds())
}

// AddCompactions records deleted duplicate messages.
func (m *Metrics) AddCompactions(n int) {
	if m != nil && n > 0 {
		m.StoreCompactions.Add(float64(n))
	}
}

// SetCachedRecords records the cache size.
func (m *Metrics) SetCachedRecords(n int) {
	if m != nil {
		m.CachedRecords.Set(float64(n))
	}
}

// IncrementSubmission records a submission outcome.
func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

// IncrementGateDecision records a gate decision.
func (m *Metrics) IncrementGateDecision(decision string) {
	if m != nil {
		m.GateDecisions.WithLabelValues(decision).Inc()
	}
}

// IncrementRevalidation records a revalidation outcome.
func (m *Metrics) IncrementRevalidation(outcome string) {
	if m != nil {
		m.Revalidations.WithLabelValues(outcome).Inc()
	}
}

// IncrementOnboardingPrompt records a sent onboarding prompt.
func (m *Metrics) IncrementOnboardingPrompt() {
	if m != nil {
		m.OnboardingPrompts.Inc()
	}
}
