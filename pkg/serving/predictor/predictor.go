package predictor

import (
	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
)

// DecisionThreshold is the positive-class cut-off; a probability equal to it
// is labelled positive.
const DecisionThreshold = 0.50

// Normalizer applies the fitted scaler for the vector's schema version.
type Normalizer struct {
	store *Store
}

func NewNormalizer(store *Store) *Normalizer {
	return &Normalizer{store: store}
}

func (n *Normalizer) Normalize(vec models.FeatureVector) (models.FeatureVector, error) {
	scaler, err := n.store.Scaler(vec.SchemaVersion)
	if err != nil {
		return models.FeatureVector{}, err
	}
	if err := checkOrder(StageNormalize, ScalerFile, scaler.FeatureNames, vec.Names); err != nil {
		return models.FeatureVector{}, err
	}
	out := vec.Clone()
	out.Values = scaler.Transform(vec.Values)
	return out, nil
}

// Predictor runs the fitted classifier for the vector's schema version.
type Predictor struct {
	store *Store
}

func NewPredictor(store *Store) *Predictor {
	return &Predictor{store: store}
}

// Predict scores a normalized vector. Importances are left for the caller to
// rank; see Importances.
func (p *Predictor) Predict(vec models.FeatureVector) (models.PredictionResult, error) {
	classifier, err := p.store.Classifier(vec.SchemaVersion)
	if err != nil {
		return models.PredictionResult{}, err
	}
	if err := checkOrder(StagePredict, ClassifierFile, classifier.FeatureNames, vec.Names); err != nil {
		return models.PredictionResult{}, err
	}

	positive := clamp01(classifier.PositiveProbability(vec.Values))
	return models.PredictionResult{
		Label:               Decide(positive),
		PositiveProbability: positive,
		NegativeProbability: 1 - positive,
	}, nil
}

// Importances returns the model's static per-feature importances in the
// classifier's column order.
func (p *Predictor) Importances(version string) ([]models.FeatureImportance, error) {
	classifier, err := p.store.Classifier(version)
	if err != nil {
		return nil, err
	}
	out := make([]models.FeatureImportance, len(classifier.FeatureNames))
	for i, name := range classifier.FeatureNames {
		out[i] = models.FeatureImportance{Feature: name, Importance: classifier.Importances[i]}
	}
	return out, nil
}

func Decide(positive float64) int {
	if positive >= DecisionThreshold {
		return 1
	}
	return 0
}

func clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
