// Package metrics exposes Prometheus instrumentation for the dispatch
// path: a query's wait to enter the gate (pending_update_mutex and
// query_mutex together), end-to-end query latency and outcome, the
// in-flight query count, and a loader's drain wait, swap outcome and
// published generation. A loader's waits on pending_update_mutex and
// query_mutex are not measured separately. The package-level GaugeVec/CounterVec/
// HistogramVec vars registered in init() mirror the teacher's
// controller/pkg/metrics package, generalized from per-session
// reconciliation metrics to per-query/per-swap dispatch metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// QueriesTotal counts completed queries by plugin kind and
	// apierr.ErrorKind ("" for Ok).
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routingd_queries_total",
			Help: "Total number of dispatched queries by plugin kind and result kind.",
		},
		[]string{"plugin", "kind"},
	)

	// QueryDuration observes end-to-end latency of Engine's typed entry
	// points, from gate entry to gate leave.
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routingd_query_duration_seconds",
			Help:    "Duration of a dispatched query, including gate wait time.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"plugin"},
	)

	// GateWaitDuration observes how long a query spent blocked acquiring
	// pending_update_mutex then query_mutex before it could increment
	// the in-flight counter.
	GateWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routingd_gate_wait_duration_seconds",
			Help:    "Time a query spent waiting to enter the query gate.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"plugin"},
	)

	// InFlightQueries mirrors the live value of the shared query
	// counter, sampled on every gate enter/leave.
	InFlightQueries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "routingd_in_flight_queries",
			Help: "Current value of the shared barrier's in-flight query counter.",
		},
	)

	// DatasetSwapsTotal counts loader publishes by outcome ("ok",
	// "error").
	DatasetSwapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routingd_dataset_swaps_total",
			Help: "Total number of dataset generation publishes by outcome.",
		},
		[]string{"result"},
	)

	// DatasetSwapDrainDuration observes how long a loader publish spent
	// waiting for in-flight queries to drain after acquiring both
	// mutexes.
	DatasetSwapDrainDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routingd_dataset_swap_drain_duration_seconds",
			Help:    "Time a publish spent waiting for the query counter to reach zero.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"region"},
	)

	// CurrentGeneration reports the generation id currently published
	// in the control block, per region.
	CurrentGeneration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "routingd_current_generation",
			Help: "Generation id currently published for a region.",
		},
		[]string{"region"},
	)
)

func init() {
	prometheus.MustRegister(
		QueriesTotal,
		QueryDuration,
		GateWaitDuration,
		InFlightQueries,
		DatasetSwapsTotal,
		DatasetSwapDrainDuration,
		CurrentGeneration,
	)
}

// RecordQuery records a completed query's outcome and latency.
func RecordQuery(plugin string, kind string, seconds float64) {
	QueriesTotal.WithLabelValues(plugin, kind).Inc()
	QueryDuration.WithLabelValues(plugin).Observe(seconds)
}

// RecordGateWait records how long a query waited to enter the gate.
func RecordGateWait(plugin string, seconds float64) {
	GateWaitDuration.WithLabelValues(plugin).Observe(seconds)
}

// RecordSwap records a loader publish's outcome and drain latency.
func RecordSwap(region string, ok bool, drainSeconds float64) {
	result := "ok"
	if !ok {
		result = "error"
	}
	DatasetSwapsTotal.WithLabelValues(result).Inc()
	DatasetSwapDrainDuration.WithLabelValues(region).Observe(drainSeconds)
}

// RecordGeneration publishes the currently-active generation id for a
// region to the CurrentGeneration gauge.
func RecordGeneration(region string, generation uint64) {
	CurrentGeneration.WithLabelValues(region).Set(float64(generation))
}
