package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservePredictionCounts(t *testing.T) {
	total := testutil.ToFloat64(predictionsTotal)
	positive := testutil.ToFloat64(predictionsPositive)
	dropped := testutil.ToFloat64(droppedColumns)
	validation := testutil.ToFloat64(validationFailures)

	ObservePrediction(true, 2)
	ObservePrediction(false, 0)
	ObserveValidationFailure()

	if got := testutil.ToFloat64(predictionsTotal) - total; got != 2 {
		t.Fatalf("total delta = %v", got)
	}
	if got := testutil.ToFloat64(predictionsPositive) - positive; got != 1 {
		t.Fatalf("positive delta = %v", got)
	}
	if got := testutil.ToFloat64(droppedColumns) - dropped; got != 2 {
		t.Fatalf("dropped delta = %v", got)
	}
	if got := testutil.ToFloat64(validationFailures) - validation; got != 1 {
		t.Fatalf("validation delta = %v", got)
	}
}

func TestFailureCounters(t *testing.T) {
	before := []float64{
		testutil.ToFloat64(schemaMismatches),
		testutil.ToFloat64(artifactFailures),
		testutil.ToFloat64(internalFailures),
		testutil.ToFloat64(historyFailures),
	}
	ObserveSchemaMismatch()
	ObserveArtifactFailure()
	ObserveInternalFailure()
	ObserveHistoryFailure()
	after := []float64{
		testutil.ToFloat64(schemaMismatches),
		testutil.ToFloat64(artifactFailures),
		testutil.ToFloat64(internalFailures),
		testutil.ToFloat64(historyFailures),
	}
	for i := range before {
		if after[i]-before[i] != 1 {
			t.Fatalf("counter %d delta = %v", i, after[i]-before[i])
		}
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{
		"diabetes_risk_predictions_total",
		"diabetes_risk_schema_mismatches_total",
		"diabetes_risk_history_failures_total",
	} {
		if !strings.Contains(body, "# TYPE "+name+" counter") {
			t.Fatalf("missing %s in\n%s", name, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %s", ct)
	}
}
