package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int
	CORSOrigins    []string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers         []string
	KafkaGroupID         string
	KafkaPredictionTopic string

	// Feature schema
	SchemaVersion string
	SchemaFile    string
	TopFeatures   int

	// Artifacts
	ArtifactDir           string
	ArtifactBaseURL       string
	ArtifactFetchTimeout  time.Duration
	ArtifactFetchAttempts int

	// History
	HistoryBackend       string
	HistoryCSVPath       string
	HistoryPublishEvents bool
	HistoryServicePort   string

	// Sessions
	SessionBackend string
	SessionTTL     time.Duration

	// Authentication
	AuthMode            string
	AuthCredentialsFile string
	AuthUsername        string
	AuthPassword        string

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8090"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 64*1024)),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 40),
		CORSOrigins:    getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "synaptica"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "synaptica123"),
		PostgresDB:       getEnv("POSTGRES_DB", "diabetes_risk"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:         getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:         getEnv("KAFKA_GROUP_ID", "diabetes-risk-history"),
		KafkaPredictionTopic: getEnv("KAFKA_PREDICTION_TOPIC", "prediction.completed"),

		SchemaVersion: getEnv("SCHEMA_VERSION", "v2"),
		SchemaFile:    getEnv("SCHEMA_FILE", ""),
		TopFeatures:   getIntEnv("TOP_FEATURES", 5),

		ArtifactDir:           getEnv("ARTIFACT_DIR", "./artifacts"),
		ArtifactBaseURL:       getEnv("ARTIFACT_BASE_URL", ""),
		ArtifactFetchTimeout:  getDuration("ARTIFACT_FETCH_TIMEOUT", 30*time.Second),
		ArtifactFetchAttempts: getIntEnv("ARTIFACT_FETCH_ATTEMPTS", 1),

		HistoryBackend:       getEnv("HISTORY_BACKEND", "csv"),
		HistoryCSVPath:       getEnv("HISTORY_CSV_PATH", "./data/historico_predicoes.csv"),
		HistoryPublishEvents: getBoolEnv("HISTORY_PUBLISH_EVENTS", false),
		HistoryServicePort:   getEnv("HISTORY_SERVICE_PORT", "8091"),

		SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		SessionTTL:     getDuration("SESSION_TTL", 8*time.Hour),

		AuthMode:            getEnv("AUTH_MODE", "static"),
		AuthCredentialsFile: getEnv("AUTH_CREDENTIALS_FILE", ""),
		AuthUsername:        getEnv("AUTH_USERNAME", ""),
		AuthPassword:        getEnv("AUTH_PASSWORD", ""),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
