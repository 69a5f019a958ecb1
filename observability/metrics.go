package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EconomyMetrics records instruction outcomes and the economic flows that
// operators alert on. All counters are monotonic; state-derived gauges are
// set after every applied instruction.
type EconomyMetrics struct {
	instructions *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	swapVolume   *prometheus.CounterVec
	swapFees     *prometheus.CounterVec
	sellTax      prometheus.Counter
	liquidations prometheus.Counter
	totalDebt    prometheus.Gauge
	ammReserves  *prometheus.GaugeVec
}

var (
	economyMetricsOnce sync.Once
	economyRegistry    *EconomyMetrics
)

// Economy returns the lazily-initialised metrics registry for the economy
// processor.
func Economy() *EconomyMetrics {
	economyMetricsOnce.Do(func() {
		economyRegistry = &EconomyMetrics{
			instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vex",
				Subsystem: "economy",
				Name:      "instructions_total",
				Help:      "Applied instructions segmented by instruction name.",
			}, []string{"instruction"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vex",
				Subsystem: "economy",
				Name:      "rejections_total",
				Help:      "Rejected instructions segmented by instruction name and rejection code.",
			}, []string{"instruction", "code"}),
			swapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vex",
				Subsystem: "amm",
				Name:      "swap_volume_total",
				Help:      "Swap input volume segmented by direction.",
			}, []string{"direction"}),
			swapFees: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vex",
				Subsystem: "amm",
				Name:      "swap_fees_total",
				Help:      "Swap fees collected segmented by token.",
			}, []string{"token"}),
			sellTax: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vex",
				Subsystem: "amm",
				Name:      "sell_tax_burned_total",
				Help:      "VEX burned by the dynamic sell tax.",
			}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vex",
				Subsystem: "vault",
				Name:      "liquidations_total",
				Help:      "Executed vault liquidations.",
			}),
			totalDebt: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "vex",
				Subsystem: "vault",
				Name:      "total_debt",
				Help:      "Outstanding VUSD debt across all vaults.",
			}),
			ammReserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "vex",
				Subsystem: "amm",
				Name:      "reserves",
				Help:      "Pool reserves segmented by token.",
			}, []string{"token"}),
		}
		prometheus.MustRegister(
			economyRegistry.instructions,
			economyRegistry.rejections,
			economyRegistry.swapVolume,
			economyRegistry.swapFees,
			economyRegistry.sellTax,
			economyRegistry.liquidations,
			economyRegistry.totalDebt,
			economyRegistry.ammReserves,
		)
	})
	return economyRegistry
}

// ObserveApplied records a successfully applied instruction.
func (m *EconomyMetrics) ObserveApplied(instruction string) {
	if m == nil {
		return
	}
	m.instructions.WithLabelValues(instruction).Inc()
}

// ObserveRejected records a rejected instruction with its stable code.
func (m *EconomyMetrics) ObserveRejected(instruction, code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(instruction, code).Inc()
}

// ObserveSwap records an executed trade.
func (m *EconomyMetrics) ObserveSwap(direction, feeToken string, amountIn, fee, tax uint64) {
	if m == nil {
		return
	}
	m.swapVolume.WithLabelValues(direction).Add(float64(amountIn))
	m.swapFees.WithLabelValues(feeToken).Add(float64(fee))
	if tax > 0 {
		m.sellTax.Add(float64(tax))
	}
}

// ObserveLiquidation records an executed liquidation.
func (m *EconomyMetrics) ObserveLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// SetTotalDebt publishes the current pool-wide debt.
func (m *EconomyMetrics) SetTotalDebt(debt uint64) {
	if m == nil {
		return
	}
	m.totalDebt.Set(float64(debt))
}

// SetReserves publishes the current pool reserves.
func (m *EconomyMetrics) SetReserves(reserveVEX, reserveVUSD uint64) {
	if m == nil {
		return
	}
	m.ammReserves.WithLabelValues("vex").Set(float64(reserveVEX))
	m.ammReserves.WithLabelValues("vusd").Set(float64(reserveVUSD))
}
