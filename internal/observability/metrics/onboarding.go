package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeMiss     = "miss"
	OutcomeExpired  = "expired"
	OutcomeCorrupt  = "corrupt"
	OutcomeRejected = "rejected"
	OutcomeInFlight = "in_flight"
)

// Onboarding holds the prometheus collectors scraped from /metrics.
type Onboarding struct {
	draftSaves       *prometheus.CounterVec
	draftLoads       *prometheus.CounterVec
	pricingFallbacks *prometheus.CounterVec
	stepTransitions  *prometheus.CounterVec
	checkoutOutcomes *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
}

// NewOnboarding registers the onboarding collectors on registerer.
func NewOnboarding(registerer prometheus.Registerer, cfg Config) *Onboarding {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{
		"service": defaultString(cfg.ServiceName, "custodia360"),
		"env":     defaultString(cfg.Environment, "unknown"),
	}

	m := &Onboarding{
		draftSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "custodia360_draft_saves_total",
			Help:        "Draft store writes by backend and outcome.",
			ConstLabels: labels,
		}, []string{"backend", "outcome"}),
		draftLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "custodia360_draft_loads_total",
			Help:        "Draft store reads by backend and outcome.",
			ConstLabels: labels,
		}, []string{"backend", "outcome"}),
		pricingFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "custodia360_pricing_tier_fallback_total",
			Help:        "Quotes computed with the default tier.",
			ConstLabels: labels,
		}, []string{"reason"}),
		stepTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "custodia360_step_transitions_total",
			Help:        "Onboarding state transitions by target step and outcome.",
			ConstLabels: labels,
		}, []string{"step", "outcome"}),
		checkoutOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "custodia360_checkout_handoffs_total",
			Help:        "Checkout handoff attempts by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		checkoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "custodia360_checkout_handoff_duration_seconds",
			Help:        "Latency of the payment session request.",
			ConstLabels: labels,
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 12},
		}),
	}

	registerer.MustRegister(
		m.draftSaves,
		m.draftLoads,
		m.pricingFallbacks,
		m.stepTransitions,
		m.checkoutOutcomes,
		m.checkoutDuration,
	)
	return m
}

func (m *Onboarding) DraftSaved(backend, outcome string) {
	if m == nil {
		return
	}
	m.draftSaves.WithLabelValues(backend, outcome).Inc()
}

func (m *Onboarding) DraftLoaded(backend, outcome string) {
	if m == nil {
		return
	}
	m.draftLoads.WithLabelValues(backend, outcome).Inc()
}

func (m *Onboarding) PricingFallback(reason string) {
	if m == nil {
		return
	}
	m.pricingFallbacks.WithLabelValues(reason).Inc()
}

func (m *Onboarding) StepTransition(step, outcome string) {
	if m == nil {
		return
	}
	m.stepTransitions.WithLabelValues(step, outcome).Inc()
}

// CheckoutHandoff records the outcome and, when positive, the provider latency.
func (m *Onboarding) CheckoutHandoff(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.checkoutOutcomes.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		m.checkoutDuration.Observe(seconds)
	}
}

func defaultString(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
