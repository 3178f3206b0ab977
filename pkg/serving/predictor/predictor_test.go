package predictor

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
	"github.com/synaptica-ai/diabetes-risk/pkg/ml/forest"
	"github.com/synaptica-ai/diabetes-risk/pkg/ml/linear"
)

var testColumns = []string{"Age", "BMI", "Gender_Male"}

func logisticArtifact(names []string, bias float64, coeffs []float64) ClassifierArtifact {
	return ClassifierArtifact{Model: ModelSpec{
		Type:         "classifier",
		Algorithm:    AlgorithmLogistic,
		FeatureNames: names,
		Weights:      linear.Weights{Bias: bias, Coefficients: coeffs},
	}}
}

func standardScaler(names []string) ScalerArtifact {
	mean := make([]float64, len(names))
	scale := make([]float64, len(names))
	for i := range names {
		mean[i] = 10
		scale[i] = 2
	}
	return ScalerArtifact{Scaler: ScalerSpec{Kind: ScalerStandard, FeatureNames: names, Mean: mean, Scale: scale}}
}

func newTestStore(t *testing.T, classifier ClassifierArtifact, scaler ScalerArtifact) *Store {
	t.Helper()
	store := NewStore(t.TempDir())
	if err := store.Save("v1", ClassifierFile, classifier); err != nil {
		t.Fatalf("save classifier: %v", err)
	}
	if err := store.Save("v1", ScalerFile, scaler); err != nil {
		t.Fatalf("save scaler: %v", err)
	}
	return store
}

func vector(names []string, values ...float64) models.FeatureVector {
	return models.FeatureVector{SchemaVersion: "v1", Names: names, Values: values}
}

func TestNormalizeStandardScalerDoesNotMutateInput(t *testing.T) {
	store := newTestStore(t, logisticArtifact(testColumns, 0, []float64{0, 0, 0}), standardScaler(testColumns))
	in := vector(testColumns, 12, 14, 10)

	out, err := NewNormalizer(store).Normalize(in)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []float64{1, 2, 0}
	for i := range want {
		if out.Values[i] != want[i] {
			t.Fatalf("position %d: expected %v, got %v", i, want[i], out.Values[i])
		}
	}
	if in.Values[0] != 12 {
		t.Fatalf("input vector was mutated: %v", in.Values)
	}
}

func TestNormalizeRejectsReorderedVector(t *testing.T) {
	store := newTestStore(t, logisticArtifact(testColumns, 0, []float64{0, 0, 0}), standardScaler(testColumns))
	swapped := []string{"BMI", "Age", "Gender_Male"}

	_, err := NewNormalizer(store).Normalize(vector(swapped, 1, 2, 3))
	if !IsSchemaMismatch(err) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "position 0") {
		t.Fatalf("expected position detail, got %q", err.Error())
	}
}

func TestNormalizeRejectsWrongWidth(t *testing.T) {
	store := newTestStore(t, logisticArtifact(testColumns, 0, []float64{0, 0, 0}), standardScaler(testColumns))
	_, err := NewNormalizer(store).Normalize(vector(testColumns[:2], 1, 2))
	if !IsSchemaMismatch(err) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestPredictTieResolvesPositive(t *testing.T) {
	store := newTestStore(t, logisticArtifact(testColumns, 0, []float64{0, 0, 0}), standardScaler(testColumns))

	result, err := NewPredictor(store).Predict(vector(testColumns, 0, 0, 0))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if result.PositiveProbability != 0.5 {
		t.Fatalf("expected probability 0.5, got %v", result.PositiveProbability)
	}
	if result.Label != 1 {
		t.Fatalf("expected tie to resolve positive, got label %d", result.Label)
	}
	if math.Abs(result.PositiveProbability+result.NegativeProbability-1) > 1e-12 {
		t.Fatalf("probabilities do not sum to 1: %+v", result)
	}
}

func TestDecide(t *testing.T) {
	cases := []struct {
		p    float64
		want int
	}{
		{0, 0}, {0.4999, 0}, {0.5, 1}, {0.73, 1}, {1, 1},
	}
	for _, tc := range cases {
		if got := Decide(tc.p); got != tc.want {
			t.Fatalf("Decide(%v) = %d, want %d", tc.p, got, tc.want)
		}
	}
}

func TestRandomForestArtifact(t *testing.T) {
	artifact := ClassifierArtifact{Model: ModelSpec{
		Algorithm:          AlgorithmRandomForest,
		FeatureNames:       testColumns,
		FeatureImportances: []float64{0.2, 0.7, 0.1},
		Trees: []forest.Tree{{Nodes: []forest.Node{
			{Feature: 1, Threshold: 0, Left: 1, Right: 2},
			{Left: forest.Leaf, Right: forest.Leaf, Value: []float64{8, 2}},
			{Left: forest.Leaf, Right: forest.Leaf, Value: []float64{1, 3}},
		}}},
	}}
	store := newTestStore(t, artifact, standardScaler(testColumns))
	p := NewPredictor(store)

	result, err := p.Predict(vector(testColumns, 0, 1.5, 1))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if result.PositiveProbability != 0.75 || result.Label != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	importances, err := p.Importances("v1")
	if err != nil {
		t.Fatalf("importances: %v", err)
	}
	if importances[1].Feature != "BMI" || importances[1].Importance != 0.7 {
		t.Fatalf("unexpected importances %+v", importances)
	}
}

func TestRandomForestRequiresImportances(t *testing.T) {
	_, err := NewClassifier(ClassifierArtifact{Model: ModelSpec{
		Algorithm:    AlgorithmRandomForest,
		FeatureNames: testColumns,
		Trees:        []forest.Tree{{Nodes: []forest.Node{{Left: forest.Leaf, Value: []float64{1, 1}}}}},
	}})
	if err == nil {
		t.Fatal("expected error for missing importances")
	}
}

func TestMissingArtifactIsUnavailable(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := NewPredictor(store).Predict(vector(testColumns, 0, 0, 0))
	if !IsArtifactUnavailable(err) {
		t.Fatalf("expected artifact unavailable, got %v", err)
	}
}

func TestVerifyDetectsSchemaDrift(t *testing.T) {
	store := newTestStore(t, logisticArtifact(testColumns, 0, []float64{0, 0, 0}), standardScaler(testColumns))
	if err := store.Verify("v1", testColumns); err != nil {
		t.Fatalf("verify: %v", err)
	}
	drifted := []string{"Age", "BMI", "Sex_Male"}
	if err := store.Verify("v1", drifted); !IsSchemaMismatch(err) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestStoreReloadsOnModification(t *testing.T) {
	store := newTestStore(t, logisticArtifact(testColumns, -5, []float64{0, 0, 0}), standardScaler(testColumns))
	p := NewPredictor(store)

	first, err := p.Predict(vector(testColumns, 0, 0, 0))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if first.Label != 0 {
		t.Fatalf("expected negative, got %+v", first)
	}

	if err := store.Save("v1", ClassifierFile, logisticArtifact(testColumns, 5, []float64{0, 0, 0})); err != nil {
		t.Fatalf("save: %v", err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(store.Path("v1", ClassifierFile), later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	second, err := p.Predict(vector(testColumns, 0, 0, 0))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if second.Label != 1 {
		t.Fatalf("expected reloaded artifact to predict positive, got %+v", second)
	}
}

func TestFetcherDownloadsMissingArtifacts(t *testing.T) {
	source := newTestStore(t, logisticArtifact(testColumns, 0, []float64{0, 0, 0}), standardScaler(testColumns))
	server := httptest.NewServer(http.StripPrefix("/models", http.FileServer(http.Dir(source.dir))))
	defer server.Close()

	target := NewStore(t.TempDir())
	fetcher := NewFetcher(server.URL+"/models/", 5*time.Second, 1)
	if err := fetcher.EnsureLocal(context.Background(), target, "v1"); err != nil {
		t.Fatalf("ensure local: %v", err)
	}
	if err := target.Verify("v1", testColumns); err != nil {
		t.Fatalf("verify downloaded artifacts: %v", err)
	}
}

func TestFetcherWithoutBaseURLReportsUnavailable(t *testing.T) {
	target := NewStore(t.TempDir())
	err := NewFetcher("", time.Second, 1).EnsureLocal(context.Background(), target, "v1")
	if !IsArtifactUnavailable(err) {
		t.Fatalf("expected artifact unavailable, got %v", err)
	}
}

func TestFetcherReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	err := NewFetcher(server.URL, time.Second, 1).EnsureLocal(context.Background(), NewStore(t.TempDir()), "v1")
	if !IsArtifactUnavailable(err) {
		t.Fatalf("expected artifact unavailable, got %v", err)
	}
}

func TestFetcherRetriesServerErrors(t *testing.T) {
	source := newTestStore(t, logisticArtifact(testColumns, 0, []float64{0, 0, 0}), standardScaler(testColumns))
	files := http.StripPrefix("/models", http.FileServer(http.Dir(source.dir)))
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		files.ServeHTTP(w, r)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL+"/models", 5*time.Second, 3)
	fetcher.backoff = time.Millisecond
	target := NewStore(t.TempDir())
	if err := fetcher.EnsureLocal(context.Background(), target, "v1"); err != nil {
		t.Fatalf("ensure local: %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("requests = %d, want 4", got)
	}
}

func TestFetcherDoesNotRetryMissingArtifacts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, time.Second, 5)
	fetcher.backoff = time.Millisecond
	err := fetcher.EnsureLocal(context.Background(), NewStore(t.TempDir()), "v1")
	if !IsArtifactUnavailable(err) {
		t.Fatalf("expected artifact unavailable, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("requests = %d, want 1", got)
	}
}

func TestFetcherHonoursCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("cancelled fetch should not reach the server")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewFetcher(server.URL, time.Second, 3).EnsureLocal(ctx, NewStore(t.TempDir()), "v1")
	if !IsArtifactUnavailable(err) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled artifact fetch, got %v", err)
	}
}
