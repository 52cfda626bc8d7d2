package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application's prometheus collectors. A nil *Metrics is
// valid and records nothing, so tests can pass nil.
type Metrics struct {
	finalizeTotal       *prometheus.CounterVec
	ledgerMissingEvent  prometheus.Counter
	ledgerSubmitSeconds prometheus.Histogram
	offerTransitions    *prometheus.CounterVec
	staleNotarizations  prometheus.Gauge
	agreementsExpired   prometheus.Counter

	registerOnce sync.Once
}

// New registers the collectors with registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{}
	m.Register(registry)
	return m
}

// Register is idempotent; only the first call registers.
func (m *Metrics) Register(registry prometheus.Registerer) {
	if m == nil || registry == nil {
		return
	}
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.finalizeTotal = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rentchain_finalize_total",
			Help: "Agreement finalize attempts by outcome",
		}, []string{"outcome"})
		m.ledgerMissingEvent = factory.NewCounter(prometheus.CounterOpts{
			Name: "rentchain_ledger_missing_event_total",
			Help: "Confirmed notarization transactions whose receipt had no AgreementCreated event",
		})
		m.ledgerSubmitSeconds = factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentchain_ledger_submit_seconds",
			Help:    "Time from sending a notarization transaction to its confirmation",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		})
		m.offerTransitions = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rentchain_offer_transitions_total",
			Help: "Offer status transitions by resulting status",
		}, []string{"status"})
		m.staleNotarizations = factory.NewGauge(prometheus.GaugeOpts{
			Name: "rentchain_stale_notarizations",
			Help: "Notarization journal rows stuck in SUBMITTING or CONFIRMED at the last check",
		})
		m.agreementsExpired = factory.NewCounter(prometheus.CounterOpts{
			Name: "rentchain_agreements_expired_total",
			Help: "Agreements moved to EXPIRED by the scheduler",
		})
	})
}

func (m *Metrics) registered() bool {
	return m != nil && m.finalizeTotal != nil
}

// FinalizeOutcome counts one finalize call. outcome is "ok" or an error kind.
func (m *Metrics) FinalizeOutcome(outcome string) {
	if m.registered() {
		m.finalizeTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) LedgerMissingEvent() {
	if m.registered() {
		m.ledgerMissingEvent.Inc()
	}
}

func (m *Metrics) ObserveLedgerSubmit(d time.Duration) {
	if m.registered() {
		m.ledgerSubmitSeconds.Observe(d.Seconds())
	}
}

func (m *Metrics) OfferTransition(status string, n int) {
	if m.registered() && n > 0 {
		m.offerTransitions.WithLabelValues(status).Add(float64(n))
	}
}

func (m *Metrics) SetStaleNotarizations(n int) {
	if m.registered() {
		m.staleNotarizations.Set(float64(n))
	}
}

func (m *Metrics) AgreementsExpired(n int) {
	if m.registered() && n > 0 {
		m.agreementsExpired.Add(float64(n))
	}
}
