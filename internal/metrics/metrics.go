// Package metrics exposes the engine's Prometheus instrumentation:
//   - engine_ticks_total{loop}            – fast/slow loop iterations
//   - engine_entries_total{symbol}        – confirmed entries
//   - engine_exits_total{symbol,reason}   – confirmed exits split by reason
//   - engine_realized_pnl                 – day realized P&L snapshot (gauge)
//   - engine_stop_losses_total            – stop-class exits today
//   - engine_broker_errors_total{action}  – broker call failures
//
// Registered in init() on the default registry; cmd/engine serves them at
// /metrics when enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_ticks_total",
			Help: "Scheduler loop iterations",
		},
		[]string{"loop"},
	)

	entriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_entries_total",
			Help: "Confirmed position entries",
		},
		[]string{"symbol"},
	)

	exitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_exits_total",
			Help: "Confirmed position exits by reason",
		},
		[]string{"symbol", "reason"},
	)

	realizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_realized_pnl",
			Help: "Realized P&L for the session",
		},
	)

	stopLossesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_stop_losses_total",
			Help: "Stop-class exits this session",
		},
	)

	brokerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_broker_errors_total",
			Help: "Broker call failures by attempted action",
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(
		ticksTotal,
		entriesTotal,
		exitsTotal,
		realizedPnL,
		stopLossesTotal,
		brokerErrorsTotal,
	)
}

// TickObserved counts one loop iteration; loop is "fast" or "slow".
func TickObserved(loop string) {
	ticksTotal.WithLabelValues(loop).Inc()
}

// EntryConfirmed counts one confirmed entry.
func EntryConfirmed(symbol string) {
	entriesTotal.WithLabelValues(symbol).Inc()
}

// ExitConfirmed counts one confirmed exit.
func ExitConfirmed(symbol, reason string) {
	exitsTotal.WithLabelValues(symbol, reason).Inc()
}

// SetRealizedPnL updates the session P&L gauge.
func SetRealizedPnL(pnl float64) {
	realizedPnL.Set(pnl)
}

// StopLossRecorded counts one stop-class exit.
func StopLossRecorded() {
	stopLossesTotal.Inc()
}

// BrokerError counts one failed broker call.
func BrokerError(action string) {
	brokerErrorsTotal.WithLabelValues(action).Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
