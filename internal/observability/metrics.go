package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus registry and the hookmeta meters.
type Metrics struct {
	Registry          *prometheus.Registry
	OperationDuration *prometheus.HistogramVec
	OperationTotal    *prometheus.CounterVec
	DiagnosticsTotal  *prometheus.CounterVec
	Descriptors       *prometheus.GaugeVec
	Bindings          *prometheus.GaugeVec
	ReloadsTotal      *prometheus.CounterVec
}

// NewMetrics creates a custom Prometheus registry with the hookmeta metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hookmeta_operation_duration_seconds",
		Help:    "Duration of operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	opTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hookmeta_operation_total",
		Help: "Total number of operations.",
	}, []string{"operation", "status"})

	diagnostics := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hookmeta_diagnostics_total",
		Help: "Validation findings written to the diagnostic log.",
	}, []string{"category"})

	descriptors := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hookmeta_descriptors",
		Help: "Registered descriptors in the current snapshot.",
	}, []string{"kind"})

	bindings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hookmeta_bindings",
		Help: "Endpoint bindings in the current snapshot.",
	}, []string{"source"})

	reloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hookmeta_reloads_total",
		Help: "Snapshot rebuilds by outcome.",
	}, []string{"status"})

	reg.MustRegister(opDuration, opTotal, diagnostics, descriptors, bindings, reloads)

	return &Metrics{
		Registry:          reg,
		OperationDuration: opDuration,
		OperationTotal:    opTotal,
		DiagnosticsTotal:  diagnostics,
		Descriptors:       descriptors,
		Bindings:          bindings,
		ReloadsTotal:      reloads,
	}
}
