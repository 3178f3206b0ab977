package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/diabetes-risk/pkg/auth"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/config"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/database"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/kafka"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/logger"
	"github.com/synaptica-ai/diabetes-risk/pkg/history"
	"github.com/synaptica-ai/diabetes-risk/pkg/pipeline"
	"github.com/synaptica-ai/diabetes-risk/pkg/schema"
	"github.com/synaptica-ai/diabetes-risk/pkg/serving"
	"github.com/synaptica-ai/diabetes-risk/pkg/serving/middleware"
	"github.com/synaptica-ai/diabetes-risk/pkg/serving/predictor"
	"github.com/synaptica-ai/diabetes-risk/pkg/session"
)

func main() {
	logger.Init()
	cfg := config.Load()

	registry, err := schema.Load(cfg.SchemaFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load feature schemas")
	}
	activeSchema, err := registry.Get(cfg.SchemaVersion)
	if err != nil {
		logger.Log.WithError(err).WithField("available", registry.Versions()).Fatal("Unknown schema version")
	}

	store := predictor.NewStore(cfg.ArtifactDir)
	fetcher := predictor.NewFetcher(cfg.ArtifactBaseURL, cfg.ArtifactFetchTimeout, cfg.ArtifactFetchAttempts)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.ArtifactFetchTimeout*time.Duration(max(cfg.ArtifactFetchAttempts, 1))*2)
	if err := fetcher.EnsureLocal(startupCtx, store, activeSchema.Version); err != nil {
		logger.Log.WithError(err).Fatal("Model artifacts unavailable")
	}
	cancelStartup()
	if err := store.Verify(activeSchema.Version, activeSchema.Names()); err != nil {
		logger.Log.WithError(err).WithField("schema_version", activeSchema.Version).Fatal("Model artifacts do not match the feature schema")
	}

	authenticator, err := buildAuthenticator(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to configure authentication")
	}
	sessions := session.NewManager(authenticator, buildSessionStore(cfg), cfg.SessionTTL)
	defer database.CloseRedis()

	recorder, closeRecorder := buildRecorder(cfg)
	defer closeRecorder()

	service := pipeline.NewService(
		activeSchema,
		predictor.NewNormalizer(store),
		predictor.NewPredictor(store),
		recorder,
		cfg.TopFeatures,
	)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	serving.NewHTTPHandler(service, sessions, recorder).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      middleware.CORS(cfg.CORSOrigins)(router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":           cfg.ServerHost,
			"port":           cfg.ServerPort,
			"schema_version": activeSchema.Version,
			"history":        cfg.HistoryBackend,
			"auth_mode":      cfg.AuthMode,
		}).Info("Risk Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Risk Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Risk Service stopped")
}

func buildAuthenticator(cfg *config.Config) (auth.Authenticator, error) {
	switch strings.ToLower(cfg.AuthMode) {
	case "oidc":
		return auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret)
	case "static", "":
		var creds []auth.Credential
		if cfg.AuthCredentialsFile != "" {
			loaded, err := auth.LoadCredentials(cfg.AuthCredentialsFile)
			if err != nil {
				return nil, err
			}
			creds = append(creds, loaded...)
		}
		if cfg.AuthUsername != "" && cfg.AuthPassword != "" {
			cred, err := auth.HashCredential(cfg.AuthUsername, cfg.AuthPassword)
			if err != nil {
				return nil, err
			}
			creds = append(creds, cred)
		}
		return auth.NewStaticAuthenticator(creds)
	default:
		return nil, fmt.Errorf("unsupported AUTH_MODE %q", cfg.AuthMode)
	}
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

func buildRecorder(cfg *config.Config) (history.Recorder, func()) {
	var recorder history.Recorder
	closers := []func(){}

	switch strings.ToLower(cfg.HistoryBackend) {
	case "postgres":
		db, err := database.GetPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to database")
		}
		gormRecorder := history.NewGormRecorder(db)
		if err := gormRecorder.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate history table")
		}
		recorder = gormRecorder
		closers = append(closers, func() { _ = database.ClosePostgres() })
	case "memory":
		recorder = history.NewMemoryRecorder()
	default:
		recorder = history.NewCSVRecorder(cfg.HistoryCSVPath)
	}

	if cfg.HistoryPublishEvents {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaPredictionTopic)
		recorder = history.NewEventRecorder(recorder, producer)
		closers = append(closers, func() { _ = producer.Close() })
	}

	return recorder, func() {
		for _, c := range closers {
			c()
		}
	}
}
