package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mars-protocol/contracts-sub007/core/types"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking structured protocol events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of committed events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// Record counts committed events and feeds the lending registry from
// liquidation and accrual events.
func (m *eventMetrics) Record(evts []types.Event) {
	if m == nil {
		return
	}
	for _, evt := range evts {
		m.emitted.WithLabelValues(normalizeLabel(evt.Type)).Inc()
		switch evt.Type {
		case "lending.liquidate":
			venue := "pool"
			if strings.Contains(evt.Attr("user"), "/") {
				venue = "creditmanager"
			}
			repaid, _ := evt.AmountAttr("debt_repaid")
			Lending().RecordLiquidation(venue, evt.Attr("debt_denom"), repaid)
		case "lending.interest_accrued":
			Lending().RecordAccrual(evt.Attr("denom"))
		}
	}
}
