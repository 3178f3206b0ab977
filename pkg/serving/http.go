// Package serving exposes the prediction pipeline over HTTP.
package serving

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/diabetes-risk/pkg/auth"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/logger"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
	"github.com/synaptica-ai/diabetes-risk/pkg/encoder"
	"github.com/synaptica-ai/diabetes-risk/pkg/explain"
	"github.com/synaptica-ai/diabetes-risk/pkg/history"
	"github.com/synaptica-ai/diabetes-risk/pkg/observability/metrics"
	"github.com/synaptica-ai/diabetes-risk/pkg/pipeline"
	"github.com/synaptica-ai/diabetes-risk/pkg/schema"
	"github.com/synaptica-ai/diabetes-risk/pkg/serving/middleware"
	"github.com/synaptica-ai/diabetes-risk/pkg/serving/predictor"
	"github.com/synaptica-ai/diabetes-risk/pkg/session"
)

const (
	DiagnosisPositive = "diabetic"
	DiagnosisNegative = "non-diabetic"
)

type HTTPHandler struct {
	service  *pipeline.Service
	sessions *session.Manager
	recorder history.Recorder
}

func NewHTTPHandler(service *pipeline.Service, sessions *session.Manager, recorder history.Recorder) *HTTPHandler {
	return &HTTPHandler{service: service, sessions: sessions, recorder: recorder}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/health", HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", h.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/sessions", h.handleLogout).Methods(http.MethodDelete)
	api.HandleFunc("/schema", h.handleSchema).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.RequireSession(h.sessions))
	protected.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
	protected.HandleFunc("/history", h.handleHistory).Methods(http.MethodGet)
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (h *HTTPHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.Log.WithField("username", req.Username).Warn("Login rejected")
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		logger.Log.WithError(err).Error("Login failed")
		http.Error(w, "authentication unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusCreated, models.SessionResponse{
		Token:     sess.ID,
		Username:  sess.Username,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *HTTPHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.sessions.Logout(r.Context(), token); err != nil {
		logger.Log.WithError(err).Error("Logout failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type schemaResponse struct {
	Schema schema.Schema  `json:"schema"`
	Bounds []schema.Bound `json:"bounds"`
	Groups []schema.Group `json:"groups"`
}

func (h *HTTPHandler) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, schemaResponse{
		Schema: h.service.Schema(),
		Bounds: schema.Bounds(),
		Groups: schema.Groups(),
	})
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	in, ignored, err := encoder.ParseRawInput(req.Input)
	if err != nil {
		metrics.ObserveValidationFailure()
		writeError(w, err)
		return
	}

	out, err := h.service.Predict(r.Context(), middleware.SessionFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}

	warnings := make([]string, 0, len(ignored)+len(out.Warnings))
	for _, key := range ignored {
		warnings = append(warnings, fmt.Sprintf("field %s is not recognised and was ignored", key))
	}
	warnings = append(warnings, out.Warnings...)

	diagnosis := DiagnosisNegative
	if out.Result.Positive() {
		diagnosis = DiagnosisPositive
	}
	suggestions := out.Suggestions
	if !explain.HasRecommendations(suggestions) {
		suggestions = []string{}
	}

	writeJSON(w, http.StatusOK, models.PredictionResponse{
		RequestID:           r.Header.Get("X-Request-ID"),
		SchemaVersion:       out.SchemaVersion,
		Label:               out.Result.Label,
		Diagnosis:           diagnosis,
		PositiveProbability: out.Result.PositiveProbability,
		NegativeProbability: out.Result.NegativeProbability,
		RiskPercent:         history.RiskPercent(out.Result.PositiveProbability),
		TopFeatures:         out.Result.Importances,
		Suggestions:         suggestions,
		Warnings:            warnings,
		Latency:             time.Since(start),
	})
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.recorder.LoadAll(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("Failed to load prediction history")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		out[i] = rec.ToMap()
	}
	writeJSON(w, http.StatusOK, out)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case encoder.IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case predictor.IsSchemaMismatch(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case predictor.IsArtifactUnavailable(err):
		http.Error(w, "model artifacts unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, pipeline.ErrUnauthenticated):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	default:
		http.Error(w, pipeline.ErrPredictionFailed.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Warn("Failed to encode response")
	}
}
