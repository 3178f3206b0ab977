package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/config"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/logger"
)

var (
	redisClient *redis.Client
	redisErr    error
	redisOnce   sync.Once
)

// GetRedis returns the shared session-store client. The first call pings the
// server; a failed ping is returned to every caller so services refuse to
// start with sessions they cannot resolve.
func GetRedis(cfg *config.Config) (*redis.Client, error) {
	redisOnce.Do(func() {
		client := redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			redisErr = fmt.Errorf("redis %s:%s: %w", cfg.RedisHost, cfg.RedisPort, err)
			return
		}
		redisClient = client
		logger.Log.WithFields(map[string]interface{}{
			"addr": client.Options().Addr,
			"db":   cfg.RedisDB,
		}).Info("Connected to Redis")
	})

	return redisClient, redisErr
}

func CloseRedis() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}
