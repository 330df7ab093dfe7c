package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics provides observability for the registrar module.
type Metrics struct {
	DomainsRegistered  prometheus.Counter
	DomainsRenewed     prometheus.Counter
	DomainsBought      prometheus.Counter
	DomainsTransferred prometheus.Counter
	FeesCollected      prometheus.Counter
	FeesWithdrawn      prometheus.Counter
	QuoteFailures      *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	OperationFailures  *prometheus.CounterVec
}

// New registers the registrar metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg. Tests pass a fresh prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DomainsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_domains_registered_total",
			Help: "Total number of new domains allocated",
		}),
		DomainsRenewed: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_domains_renewed_total",
			Help: "Total number of renewals",
		}),
		DomainsBought: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_domains_bought_total",
			Help: "Total number of lapsed domains reclaimed by purchase",
		}),
		DomainsTransferred: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_domains_transferred_total",
			Help: "Total number of ownership transfers",
		}),
		FeesCollected: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_fees_collected_lamports_total",
			Help: "Lamports paid into the registry account",
		}),
		FeesWithdrawn: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_fees_withdrawn_lamports_total",
			Help: "Lamports swept from the registry account to the authority",
		}),
		QuoteFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_quote_failures_total",
			Help: "Price quotes refused, by reason",
		}, []string{"reason"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registrar_operation_duration_seconds",
			Help:    "Duration of registrar operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
		OperationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_operation_failures_total",
			Help: "Failed registrar operations, by error code",
		}, []string{"operation", "code"}),
	}
}

func (m *Metrics) IncrementRegistered() { m.DomainsRegistered.Inc() }

func (m *Metrics) IncrementRenewed() { m.DomainsRenewed.Inc() }

func (m *Metrics) IncrementBought() { m.DomainsBought.Inc() }

func (m *Metrics) IncrementTransferred() { m.DomainsTransferred.Inc() }

// AddFeesCollected records lamports paid in.
func (m *Metrics) AddFeesCollected(lamports uint64) {
	m.FeesCollected.Add(float64(lamports))
}

// AddFeesWithdrawn records lamports swept out.
func (m *Metrics) AddFeesWithdrawn(lamports uint64) {
	m.FeesWithdrawn.Add(float64(lamports))
}

func (m *Metrics) IncrementQuoteFailure(reason string) {
	m.QuoteFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementOperationFailure(operation, code string) {
	m.OperationFailures.WithLabelValues(operation, code).Inc()
}

// ObserveOperation records how long an operation took.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
