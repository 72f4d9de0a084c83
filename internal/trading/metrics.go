package trading

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds in-process Prometheus collectors for the trading engine.
// They are never served over HTTP (spec.md's non-goals exclude a network
// API surface) and nothing in this module logs or reads them back; the
// engine only updates them. Grounded on chidi150c-coinbase's use of
// client_golang for the same gauges/counters without an exposed /metrics
// endpoint in this module.
type Metrics struct {
	Restarts  prometheus.Counter
	Fills     prometheus.Counter
	StaleBars prometheus.Counter
	Equity    *prometheus.GaugeVec
}

// NewMetrics registers a fresh, unregistered-to-any-default-registry set of
// collectors. Callers that want a global registry can pass
// prometheus.DefaultRegisterer; tests use a throwaway registry to avoid
// collisions across parallel test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronotrader_trading_restarts_total",
			Help: "Total supervisor-driven strategy restarts.",
		}),
		Fills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronotrader_trading_fills_total",
			Help: "Total broker fills across all strategies.",
		}),
		StaleBars: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronotrader_trading_stale_bars_total",
			Help: "Total ticks served from a stale cached bar.",
		}),
		Equity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chronotrader_trading_equity",
			Help: "Current total equity per strategy.",
		}, []string{"strategy_id"}),
	}
	if reg != nil {
		reg.MustRegister(m.Restarts, m.Fills, m.StaleBars, m.Equity)
	}
	return m
}
