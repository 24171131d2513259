// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Stream metrics
	UpdatesReceived *prometheus.CounterVec
	EventsDecoded   *prometheus.CounterVec
	HighestSlotSeen prometheus.Gauge
	LatestPrice     prometheus.Gauge

	// Decision metrics
	Decisions *prometheus.CounterVec
	NetChange prometheus.Gauge

	// Execution metrics
	Executions       *prometheus.CounterVec
	ExecutionLatency *prometheus.HistogramVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Health metrics
	LastUpdate prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pumpfun_liquidator"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Stream metrics
		UpdatesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "updates_received_total",
			Help:      "Total number of stream updates received by kind",
		}, []string{"kind"}),
		EventsDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_decoded_total",
			Help:      "Total number of program events that ended a scan, by kind",
		}, []string{"kind"}),
		HighestSlotSeen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),
		LatestPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "latest_price_sol",
			Help:      "Latest observed token price in SOL",
		}),

		// Decision metrics
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "evaluations_total",
			Help:      "Total number of sell evaluations by verdict",
		}, []string{"verdict"}),
		NetChange: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "net_change_lamports",
			Help:      "Net change of the last evaluation in lamports",
		}),

		// Execution metrics
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "liquidations_total",
			Help:      "Total number of liquidation attempts by mode and status",
		}, []string{"mode", "status"}),
		ExecutionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "liquidation_latency_seconds",
			Help:      "Liquidation latency from blockhash fetch to submission result",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mode"}),

		// Latency metrics
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Health metrics
		LastUpdate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_update_timestamp",
			Help:      "Unix timestamp of the last stream update",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordUpdate counts a stream update and refreshes the health gauges.
func RecordUpdate(kind string, slot int64, unixSeconds int64) {
	DefaultMetrics.UpdatesReceived.WithLabelValues(kind).Inc()
	DefaultMetrics.LastUpdate.Set(float64(unixSeconds))
	if slot > 0 {
		UpdateHighestSlot(slot)
	}
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordEvent counts the event that ended a transaction scan.
func RecordEvent(kind string) {
	DefaultMetrics.EventsDecoded.WithLabelValues(kind).Inc()
}

// RecordPrice sets the latest price gauge.
func RecordPrice(price float64) {
	DefaultMetrics.LatestPrice.Set(price)
}

// RecordDecision counts an evaluation and its net change.
func RecordDecision(verdict string, netChange float64) {
	DefaultMetrics.Decisions.WithLabelValues(verdict).Inc()
	DefaultMetrics.NetChange.Set(netChange)
}

// RecordExecution records a liquidation attempt.
func RecordExecution(mode, status string, seconds float64) {
	DefaultMetrics.Executions.WithLabelValues(mode, status).Inc()
	DefaultMetrics.ExecutionLatency.WithLabelValues(mode).Observe(seconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
