package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "diabetes_risk"

var (
	registry = prometheus.NewRegistry()

	predictionsTotal = newCounter("predictions_total",
		"Completed predictions.")
	predictionsPositive = newCounter("predictions_positive_total",
		"Completed predictions labelled positive.")
	validationFailures = newCounter("validation_failures_total",
		"Requests rejected by input validation.")
	schemaMismatches = newCounter("schema_mismatches_total",
		"Vectors rejected for disagreeing with artifact column order.")
	artifactFailures = newCounter("artifact_failures_total",
		"Requests that found the classifier or scaler unavailable.")
	internalFailures = newCounter("internal_failures_total",
		"Predictions that failed for any other reason.")
	droppedColumns = newCounter("dropped_columns_total",
		"Encoded columns dropped because the active schema does not declare them.")
	historyFailures = newCounter("history_failures_total",
		"History appends that failed after a completed prediction.")
)

func newCounter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	})
	registry.MustRegister(c)
	return c
}

func ObservePrediction(positive bool, dropped int) {
	predictionsTotal.Inc()
	if positive {
		predictionsPositive.Inc()
	}
	if dropped > 0 {
		droppedColumns.Add(float64(dropped))
	}
}

func ObserveValidationFailure() { validationFailures.Inc() }

func ObserveSchemaMismatch() { schemaMismatches.Inc() }

func ObserveArtifactFailure() { artifactFailures.Inc() }

func ObserveInternalFailure() { internalFailures.Inc() }

func ObserveHistoryFailure() { historyFailures.Inc() }

// Handler serves the service counters in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
