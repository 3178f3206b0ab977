// Package pipeline runs one prediction end to end: encode, assemble,
// normalize, predict, explain, record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/synaptica-ai/diabetes-risk/pkg/assembler"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/logger"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
	"github.com/synaptica-ai/diabetes-risk/pkg/encoder"
	"github.com/synaptica-ai/diabetes-risk/pkg/explain"
	"github.com/synaptica-ai/diabetes-risk/pkg/history"
	"github.com/synaptica-ai/diabetes-risk/pkg/observability/metrics"
	"github.com/synaptica-ai/diabetes-risk/pkg/schema"
	"github.com/synaptica-ai/diabetes-risk/pkg/serving/predictor"
	"github.com/synaptica-ai/diabetes-risk/pkg/session"
)

var (
	ErrUnauthenticated  = errors.New("no active session")
	ErrPredictionFailed = errors.New("prediction failed")
)

type Normalizer interface {
	Normalize(vec models.FeatureVector) (models.FeatureVector, error)
}

type Predictor interface {
	Predict(vec models.FeatureVector) (models.PredictionResult, error)
	Importances(version string) ([]models.FeatureImportance, error)
}

// Outcome is only returned whole; a failed run yields no partial outcome.
type Outcome struct {
	Result        models.PredictionResult
	Suggestions   []string
	Warnings      []string
	Vector        models.FeatureVector
	SchemaVersion string
}

type Service struct {
	encoder    *encoder.Encoder
	schema     schema.Schema
	normalizer Normalizer
	predictor  Predictor
	recorder   history.Recorder
	topN       int
	nowFunc    func() time.Time
}

func NewService(s schema.Schema, normalizer Normalizer, p Predictor, recorder history.Recorder, topN int) *Service {
	if topN <= 0 {
		topN = explain.DefaultTopN
	}
	return &Service{
		encoder:    encoder.New(),
		schema:     s,
		normalizer: normalizer,
		predictor:  p,
		recorder:   recorder,
		topN:       topN,
		nowFunc:    time.Now,
	}
}

func (s *Service) Schema() schema.Schema {
	return s.schema
}

// Predict runs the pipeline for one submission on behalf of sess.
func (s *Service) Predict(ctx context.Context, sess *session.Session, in models.RawInput) (out Outcome, err error) {
	if !sess.Valid(s.nowFunc()) {
		return Outcome{}, ErrUnauthenticated
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":      fmt.Sprint(r),
				"stack":      string(debug.Stack()),
				"session_id": sess.ID,
			}).Error("Prediction panicked")
			metrics.ObserveInternalFailure()
			out, err = Outcome{}, ErrPredictionFailed
		}
	}()

	out, err = s.run(in)
	if err != nil {
		return Outcome{}, s.classify(sess, err)
	}

	rec := history.NewRecord(in, out.Result.PositiveProbability, sess.Username, out.SchemaVersion, s.nowFunc())
	if s.recorder != nil {
		if appendErr := s.recorder.Append(ctx, rec); appendErr != nil {
			metrics.ObserveHistoryFailure()
			logger.Log.WithError(appendErr).WithField("record_id", rec.ID.String()).Error("Failed to append prediction history")
		}
	}

	metrics.ObservePrediction(out.Result.Positive(), len(out.Warnings))
	logger.Log.WithFields(map[string]interface{}{
		"session_id":     sess.ID,
		"schema_version": out.SchemaVersion,
		"label":          out.Result.Label,
		"risk_percent":   rec.RiskPercent,
	}).Info("Prediction completed")
	return out, nil
}

func (s *Service) run(in models.RawInput) (Outcome, error) {
	partial, err := s.encoder.Encode(in)
	if err != nil {
		return Outcome{}, err
	}

	assembled := assembler.Assemble(s.schema, partial)
	var warnings []string
	for _, name := range assembled.Dropped {
		warnings = append(warnings, fmt.Sprintf("column %s is not part of schema %s and was dropped", name, s.schema.Version))
	}
	for _, name := range assembled.Shadowed {
		warnings = append(warnings, fmt.Sprintf("column %s maps to %s, which was already supplied, and was ignored", name, s.schema.Resolve(name)))
	}

	normalized, err := s.normalizer.Normalize(assembled.Vector)
	if err != nil {
		return Outcome{}, err
	}

	result, err := s.predictor.Predict(normalized)
	if err != nil {
		return Outcome{}, err
	}

	importances, err := s.predictor.Importances(s.schema.Version)
	if err != nil {
		return Outcome{}, err
	}
	result.Importances = explain.TopFeatures(s.schema, importances, s.topN)

	return Outcome{
		Result:        result,
		Suggestions:   explain.Suggestions(in),
		Warnings:      warnings,
		Vector:        assembled.Vector,
		SchemaVersion: s.schema.Version,
	}, nil
}

// classify passes the documented error kinds through unchanged and folds
// everything else into ErrPredictionFailed.
func (s *Service) classify(sess *session.Session, err error) error {
	entry := logger.Log.WithError(err).WithField("session_id", sess.ID)
	switch {
	case encoder.IsValidationError(err):
		metrics.ObserveValidationFailure()
		entry.Warn("Prediction input rejected")
		return err
	case predictor.IsSchemaMismatch(err):
		metrics.ObserveSchemaMismatch()
		entry.Error("Feature vector does not match artifact")
		return err
	case predictor.IsArtifactUnavailable(err):
		metrics.ObserveArtifactFailure()
		entry.Error("Model artifact unavailable")
		return err
	default:
		metrics.ObserveInternalFailure()
		entry.Error("Prediction failed")
		return fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}
}
