package models

import (
	"time"
)

// RawInput is what the form layer collected, keyed by input field name
// (see schema.Bounds and schema.Groups).
type RawInput struct {
	Numeric     map[string]float64 `json:"numeric"`
	Categorical map[string]string  `json:"categorical"`
}

// FeatureVector is one assembled row in schema column order.
type FeatureVector struct {
	SchemaVersion string    `json:"schema_version"`
	Names         []string  `json:"names"`
	Values        []float64 `json:"values"`
}

func (v FeatureVector) Width() int {
	return len(v.Values)
}

// Clone returns a deep copy so downstream stages never share backing arrays.
func (v FeatureVector) Clone() FeatureVector {
	names := make([]string, len(v.Names))
	copy(names, v.Names)
	values := make([]float64, len(v.Values))
	copy(values, v.Values)
	return FeatureVector{SchemaVersion: v.SchemaVersion, Names: names, Values: values}
}

type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

type PredictionResult struct {
	Label               int                 `json:"label"`
	PositiveProbability float64             `json:"positive_probability"`
	NegativeProbability float64             `json:"negative_probability"`
	Importances         []FeatureImportance `json:"importances"`
}

func (p PredictionResult) Positive() bool {
	return p.Label == 1
}

// Model Serving
type PredictionRequest struct {
	Input map[string]interface{} `json:"input"`
}

type PredictionResponse struct {
	RequestID           string              `json:"request_id"`
	SchemaVersion       string              `json:"schema_version"`
	Label               int                 `json:"label"`
	Diagnosis           string              `json:"diagnosis"`
	PositiveProbability float64             `json:"positive_probability"`
	NegativeProbability float64             `json:"negative_probability"`
	RiskPercent         float64             `json:"risk_percent"`
	TopFeatures         []FeatureImportance `json:"top_features"`
	Suggestions         []string            `json:"suggestions"`
	Warnings            []string            `json:"warnings,omitempty"`
	Latency             time.Duration       `json:"latency"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Sessions
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=512"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}
