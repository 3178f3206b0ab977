// Package session replaces a process-wide "logged in" flag with explicit,
// per-user session objects that callers pass into the prediction pipeline.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/diabetes-risk/pkg/auth"
	"github.com/synaptica-ai/diabetes-risk/pkg/common/logger"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.ID != "" && s.Username != "" && now.Before(s.ExpiresAt)
}

type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

type Manager struct {
	authenticator auth.Authenticator
	store         Store
	ttl           time.Duration
	nowFunc       func() time.Time
}

// NewManager builds a Manager. A nil authenticator yields a Manager that
// only resolves sessions opened by another process sharing the store.
func NewManager(authenticator auth.Authenticator, store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Manager{
		authenticator: authenticator,
		store:         store,
		ttl:           ttl,
		nowFunc:       time.Now,
	}
}

// Login authenticates and opens a new session.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	if m.authenticator == nil {
		return Session{}, auth.ErrInvalidCredentials
	}
	ok, err := m.authenticator.Authenticate(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, auth.ErrInvalidCredentials
	}

	now := m.nowFunc().UTC()
	s := Session{
		ID:        uuid.NewString(),
		Username:  strings.TrimSpace(username),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return Session{}, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"session_id": s.ID,
		"username":   s.Username,
	}).Info("Session opened")
	return s, nil
}

// Resolve returns the live session for id or ErrNotFound.
func (m *Manager) Resolve(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Valid(m.nowFunc()) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Manager) Logout(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}
