package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/config"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/database"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/kafka"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/logger"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/models"
	"github.com/synaptica-ai/diabetes-risk/pkg/history"
	"github.com/synaptica-ai/diabetes-risk/pkg/serving"
	"github.com/synaptica-ai/diabetes-risk/pkg/serving/middleware"
	"github.com/synaptica-ai/diabetes-risk/pkg/session"
)

type HistoryService struct {
	recorder history.Recorder
	sessions middleware.SessionResolver
}

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres()

	recorder := history.NewGormRecorder(db)
	if err := recorder.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate history table")
	}
	if !strings.EqualFold(cfg.SessionBackend, "redis") {
		logger.Log.WithField("session_backend", cfg.SessionBackend).
			Warn("Sessions are not shared with the risk service; history reads will be rejected")
	}
	sessions := session.NewManager(nil, buildSessionStore(cfg), cfg.SessionTTL)
	defer database.CloseRedis()
	service := &HistoryService{recorder: recorder, sessions: sessions}

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaPredictionTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Consume(ctx, service.handleEvent); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("History consumer stopped")
		}
	}()

	port := cfg.HistoryServicePort
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, port),
		Handler: service.routes(),
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":  cfg.ServerHost,
			"port":  port,
			"topic": cfg.KafkaPredictionTopic,
		}).Info("History Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down History Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("History Service stopped")
}

func buildSessionStore(cfg *config.Config) session.Store {
	if strings.EqualFold(cfg.SessionBackend, "redis") {
		client, err := database.GetRedis(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to session store")
		}
		return session.NewRedisStore(client, session.RedisPrefix)
	}
	return session.NewMemoryStore()
}

func (s *HistoryService) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.HandleFunc("/health", serving.HealthCheck).Methods(http.MethodGet)

	protected := router.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.RequireSession(s.sessions))
	protected.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	return router
}

func (s *HistoryService) handleEvent(ctx context.Context, event models.Event) error {
	if event.Type != history.EventPredictionCompleted {
		return nil
	}
	rec, err := history.RecordFromMap(event.Data)
	if err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Warn("Discarding malformed history event")
		return nil
	}
	if err := s.recorder.Append(ctx, rec); err != nil {
		return err
	}
	logger.Log.WithFields(map[string]interface{}{
		"event_id":  event.ID,
		"record_id": rec.ID.String(),
	}).Debug("History record stored")
	return nil
}

func (s *HistoryService) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.recorder.LoadAll(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("Failed to load prediction history")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		out[i] = rec.ToMap()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
