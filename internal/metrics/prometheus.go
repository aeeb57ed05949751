package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Command metrics
	CommandExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockbot_command_executions_total",
			Help: "Total number of slash command executions",
		},
		[]string{"command", "status"}, // status: success|validation_error|error
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockbot_command_duration_seconds",
			Help:    "Command handling duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"command"},
	)

	// Engine metrics
	EngineCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockbot_engine_call_duration_seconds",
			Help:    "Blocking analysis engine call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"}, // kind: single_stock|market_review
	)

	BridgeInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockbot_bridge_in_flight",
			Help: "Number of blocking tasks currently running on the pool",
		},
	)

	// Fan-out metrics
	FanoutDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockbot_fanout_deliveries_total",
			Help: "Total notification fan-out deliveries",
		},
		[]string{"channel", "status"}, // status: success|error
	)
)

// Register registers all collectors with the default registry
func Register() {
	prometheus.MustRegister(
		CommandExecutions,
		CommandDuration,
		EngineCallDuration,
		BridgeInFlight,
		FanoutDeliveries,
	)
}

// Serve exposes /metrics on the given address. Blocks; run in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server.ListenAndServe()
}
