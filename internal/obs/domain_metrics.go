package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FolioMetrics counts billing outcomes. A nil *FolioMetrics records nothing.
type FolioMetrics struct {
	Computations       *prometheus.CounterVec
	Checkouts          *prometheus.CounterVec
	Overrides          *prometheus.CounterVec
	LargeTransactions  *prometheus.CounterVec
	VoucherRedemptions *prometheus.CounterVec
	Payments           *prometheus.CounterVec
	CheckoutDuration   prometheus.Histogram
}

// NewFolioMetrics initialises and registers the folio collectors.
func NewFolioMetrics(namespace string, reg prometheus.Registerer) *FolioMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &FolioMetrics{
		Computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folio_computations_total",
			Help:      "Folio computations by outcome.",
		}, []string{"outcome"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folio_checkouts_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		Overrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folio_checkout_overrides_total",
			Help:      "Checkouts completed with an outstanding balance under override.",
		}, []string{"role"}),
		LargeTransactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folio_large_transactions_total",
			Help:      "Settlements whose grand total exceeded the configured threshold.",
		}, []string{"subject"}),
		VoucherRedemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_redemptions_total",
			Help:      "Voucher redemption attempts by result.",
		}, []string{"result"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folio_payments_total",
			Help:      "Recorded payments by kind.",
		}, []string{"kind"}),
		CheckoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "folio_checkout_duration_ms",
			Help:      "Checkout latency including lock wait, in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
	mustRegister(reg, &m.Computations)
	mustRegister(reg, &m.Checkouts)
	mustRegister(reg, &m.Overrides)
	mustRegister(reg, &m.LargeTransactions)
	mustRegister(reg, &m.VoucherRedemptions)
	mustRegister(reg, &m.Payments)
	mustRegister(reg, &m.CheckoutDuration)
	return m
}

func (m *FolioMetrics) Computation(outcome string) {
	if m != nil {
		m.Computations.WithLabelValues(outcome).Inc()
	}
}

func (m *FolioMetrics) Checkout(result string) {
	if m != nil {
		m.Checkouts.WithLabelValues(result).Inc()
	}
}

func (m *FolioMetrics) Override(role string) {
	if m != nil {
		m.Overrides.WithLabelValues(role).Inc()
	}
}

func (m *FolioMetrics) LargeTransaction(subject string) {
	if m != nil {
		m.LargeTransactions.WithLabelValues(subject).Inc()
	}
}

func (m *FolioMetrics) VoucherRedemption(result string) {
	if m != nil {
		m.VoucherRedemptions.WithLabelValues(result).Inc()
	}
}

func (m *FolioMetrics) Payment(kind string) {
	if m != nil {
		m.Payments.WithLabelValues(kind).Inc()
	}
}

func (m *FolioMetrics) CheckoutLatency(ms float64) {
	if m != nil {
		m.CheckoutDuration.Observe(ms)
	}
}
