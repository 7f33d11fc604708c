package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "mars"

type turnMetrics struct {
	turns   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	queries *prometheus.CounterVec
}

type lendingMetrics struct {
	liquidations *prometheus.CounterVec
	repaid       *prometheus.CounterVec
	accruals     *prometheus.CounterVec
}

var (
	turnMetricsOnce sync.Once
	turnRegistry    *turnMetrics

	lendingMetricsOnce sync.Once
	lendingRegistry    *lendingMetrics
)

// Turns returns the lazily-initialised registry tracking dispatched messages.
func Turns() *turnMetrics {
	turnMetricsOnce.Do(func() {
		turnRegistry = &turnMetrics{
			turns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "dispatch",
				Name:      "turns_total",
				Help:      "Total executed messages segmented by module, message type, and outcome.",
			}, []string{"module", "msg", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "dispatch",
				Name:      "turn_duration_seconds",
				Help:      "Latency distribution for executed messages.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "msg"}),
			queries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "dispatch",
				Name:      "queries_total",
				Help:      "Total state queries segmented by namespace and outcome.",
			}, []string{"namespace", "outcome"}),
		}
		prometheus.MustRegister(turnRegistry.turns, turnRegistry.latency, turnRegistry.queries)
	})
	return turnRegistry
}

// Observe records the outcome of one executed message.
func (m *turnMetrics) Observe(module, msg string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	module = normalizeLabel(module)
	msg = normalizeLabel(msg)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.turns.WithLabelValues(module, msg, outcome).Inc()
	m.latency.WithLabelValues(module, msg).Observe(duration.Seconds())
}

// ObserveQuery counts one state query.
func (m *turnMetrics) ObserveQuery(namespace string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.queries.WithLabelValues(normalizeLabel(namespace), outcome).Inc()
}

// Lending returns the registry tracking pool activity derived from events.
func Lending() *lendingMetrics {
	lendingMetricsOnce.Do(func() {
		lendingRegistry = &lendingMetrics{
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "lending",
				Name:      "liquidations_total",
				Help:      "Count of liquidations segmented by venue and debt denom.",
			}, []string{"venue", "denom"}),
			repaid: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "lending",
				Name:      "liquidated_debt_total",
				Help:      "Debt repaid through liquidations in base units.",
			}, []string{"venue", "denom"}),
			accruals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "lending",
				Name:      "interest_accruals_total",
				Help:      "Count of market index updates segmented by denom.",
			}, []string{"denom"}),
		}
		prometheus.MustRegister(lendingRegistry.liquidations, lendingRegistry.repaid, lendingRegistry.accruals)
	})
	return lendingRegistry
}

// RecordLiquidation counts a liquidation and the debt it repaid.
func (m *lendingMetrics) RecordLiquidation(venue, denom string, repaid *big.Int) {
	if m == nil {
		return
	}
	venue = normalizeLabel(venue)
	denom = normalizeLabel(denom)
	m.liquidations.WithLabelValues(venue, denom).Inc()
	m.repaid.WithLabelValues(venue, denom).Add(bigToFloat(repaid))
}

func (m *lendingMetrics) RecordAccrual(denom string) {
	if m == nil {
		return
	}
	m.accruals.WithLabelValues(normalizeLabel(denom)).Inc()
}

func normalizeLabel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

func bigToFloat(v *big.Int) float64 {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
