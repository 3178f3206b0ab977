package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/synaptica-ai/diabetes-risk/pkg/ml/forest"
	"github.com/synaptica-ai/diabetes-risk/pkg/ml/linear"
)

const (
	ClassifierFile = "classifier.json"
	ScalerFile     = "scaler.json"

	AlgorithmRandomForest = "random_forest"
	AlgorithmLogistic     = "logistic_regression"

	ScalerStandard = "standard"
	ScalerIdentity = "identity"
)

type ModelSpec struct {
	Type               string         `json:"type"`
	Algorithm          string         `json:"algorithm"`
	FeatureNames       []string       `json:"feature_names"`
	FeatureImportances []float64      `json:"feature_importances,omitempty"`
	Trees              []forest.Tree  `json:"trees,omitempty"`
	Weights            linear.Weights `json:"weights"`
}

type ClassifierArtifact struct {
	Model ModelSpec `json:"model"`
}

type ScalerSpec struct {
	Kind         string    `json:"kind"`
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty"`
}

type ScalerArtifact struct {
	Scaler ScalerSpec `json:"scaler"`
}

// Classifier is a decoded, structurally validated model artifact.
type Classifier struct {
	Algorithm    string
	FeatureNames []string
	Importances  []float64
	score        func([]float64) float64
}

func (c *Classifier) PositiveProbability(x []float64) float64 {
	return c.score(x)
}

func NewClassifier(a ClassifierArtifact) (*Classifier, error) {
	spec := a.Model
	width := len(spec.FeatureNames)
	if width == 0 {
		return nil, fmt.Errorf("artifact missing feature names")
	}

	c := &Classifier{Algorithm: spec.Algorithm, FeatureNames: spec.FeatureNames}
	switch spec.Algorithm {
	case AlgorithmRandomForest:
		f := forest.Forest{Trees: spec.Trees}
		if err := f.Validate(width); err != nil {
			return nil, err
		}
		c.score = f.PredictProba
		c.Importances = spec.FeatureImportances
	case AlgorithmLogistic:
		if err := spec.Weights.Validate(width); err != nil {
			return nil, err
		}
		weights := spec.Weights
		c.score = func(x []float64) float64 { return linear.Predict(weights, x) }
		c.Importances = spec.FeatureImportances
		if len(c.Importances) == 0 {
			c.Importances = linear.Importances(weights)
		}
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", spec.Algorithm)
	}
	if len(c.Importances) != width {
		return nil, fmt.Errorf("expected %d feature importances, got %d", width, len(c.Importances))
	}
	return c, nil
}

// Scaler applies a fitted per-column transform.
type Scaler struct {
	Kind         string
	FeatureNames []string
	mean         []float64
	scale        []float64
}

func NewScaler(a ScalerArtifact) (*Scaler, error) {
	spec := a.Scaler
	width := len(spec.FeatureNames)
	if width == 0 {
		return nil, fmt.Errorf("scaler missing feature names")
	}
	switch spec.Kind {
	case ScalerStandard:
		if len(spec.Mean) != width || len(spec.Scale) != width {
			return nil, fmt.Errorf("scaler expects %d mean/scale entries, got %d/%d", width, len(spec.Mean), len(spec.Scale))
		}
	case ScalerIdentity:
	default:
		return nil, fmt.Errorf("unsupported scaler kind %q", spec.Kind)
	}
	return &Scaler{Kind: spec.Kind, FeatureNames: spec.FeatureNames, mean: spec.Mean, scale: spec.Scale}, nil
}

// Transform returns a new slice; the input is never modified.
func (s *Scaler) Transform(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if s.Kind != ScalerStandard {
		return out
	}
	for i := range out {
		scale := s.scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (out[i] - s.mean[i]) / scale
	}
	return out
}

// Store loads artifacts from dir/<version>/ and caches them until the file
// modification time changes.
type Store struct {
	dir   string
	cache map[string]cachedArtifact
	mu    sync.RWMutex
}

type cachedArtifact struct {
	value   interface{}
	modTime int64
}

func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]cachedArtifact),
	}
}

func (s *Store) Path(version, file string) string {
	return filepath.Join(s.dir, version, file)
}

func (s *Store) Classifier(version string) (*Classifier, error) {
	v, err := s.load(s.Path(version, ClassifierFile), func(content []byte) (interface{}, error) {
		var artifact ClassifierArtifact
		if err := json.Unmarshal(content, &artifact); err != nil {
			return nil, err
		}
		return NewClassifier(artifact)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Classifier), nil
}

func (s *Store) Scaler(version string) (*Scaler, error) {
	v, err := s.load(s.Path(version, ScalerFile), func(content []byte) (interface{}, error) {
		var artifact ScalerArtifact
		if err := json.Unmarshal(content, &artifact); err != nil {
			return nil, err
		}
		return NewScaler(artifact)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Scaler), nil
}

// Verify loads both artifacts for version and checks that they were fitted on
// exactly the given column order.
func (s *Store) Verify(version string, columns []string) error {
	scaler, err := s.Scaler(version)
	if err != nil {
		return err
	}
	if err := checkOrder(StageLoad, ScalerFile, scaler.FeatureNames, columns); err != nil {
		return err
	}
	classifier, err := s.Classifier(version)
	if err != nil {
		return err
	}
	return checkOrder(StageLoad, ClassifierFile, classifier.FeatureNames, columns)
}

func (s *Store) load(path string, decode func([]byte) (interface{}, error)) (interface{}, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, ArtifactUnavailableError{Path: path, Err: err}
	}
	mod := info.ModTime().UnixNano()

	s.mu.RLock()
	cached, ok := s.cache[path]
	s.mu.RUnlock()
	if ok && cached.modTime == mod {
		return cached.value, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, ArtifactUnavailableError{Path: path, Err: err}
	}
	value, err := decode(content)
	if err != nil {
		return nil, ArtifactUnavailableError{Path: path, Err: err}
	}
	s.mu.Lock()
	s.cache[path] = cachedArtifact{value: value, modTime: mod}
	s.mu.Unlock()
	return value, nil
}

// Save writes an artifact as JSON under dir/<version>/<file>.
func (s *Store) Save(version, file string, artifact interface{}) error {
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	path := s.Path(version, file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
