package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPrefix is the key namespace shared by every service that resolves
// sessions from Redis.
const RedisPrefix = "diabetes-risk:session"

// RedisStore keeps sessions as JSON values that expire with the session.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	nowFunc func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore{client: client, prefix: prefix, nowFunc: time.Now}
}

func (r *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", r.prefix, id)
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	ttl := s.ExpiresAt.Sub(r.nowFunc())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(s.ID), data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}
