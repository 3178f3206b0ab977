package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/synaptica-ai/diabetes-risk/pkg/auth"
)

type fixedAuthenticator struct {
	user, pass string
	err        error
}

func (f fixedAuthenticator) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return username == f.user && password == f.pass, nil
}

func TestLoginResolveLogout(t *testing.T) {
	m := NewManager(fixedAuthenticator{user: "ana", pass: "pw"}, NewMemoryStore(), time.Hour)
	ctx := context.Background()

	s, err := m.Login(ctx, "ana", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.ID == "" || s.Username != "ana" {
		t.Fatalf("unexpected session %+v", s)
	}

	resolved, err := m.Resolve(ctx, s.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Username != "ana" {
		t.Fatalf("expected ana, got %s", resolved.Username)
	}

	if err := m.Logout(ctx, s.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := m.Resolve(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after logout, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	m := NewManager(fixedAuthenticator{user: "ana", pass: "pw"}, NewMemoryStore(), time.Hour)
	if _, err := m.Login(context.Background(), "ana", "nope"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestLoginPropagatesAuthenticatorFailure(t *testing.T) {
	boom := errors.New("idp down")
	m := NewManager(fixedAuthenticator{err: boom}, NewMemoryStore(), time.Hour)
	if _, err := m.Login(context.Background(), "ana", "pw"); !errors.Is(err, boom) {
		t.Fatalf("expected idp error, got %v", err)
	}
}

func TestExpiredSessionIsNotResolved(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(fixedAuthenticator{user: "ana", pass: "pw"}, store, time.Minute)
	s, err := m.Login(context.Background(), "ana", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	m.nowFunc = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := m.Resolve(context.Background(), s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be rejected, got %v", err)
	}
	if _, err := store.Get(context.Background(), s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("expected expired session to be evicted")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(fixedAuthenticator{user: "ana", pass: "pw"}, NewMemoryStore(), time.Hour)
	ctx := context.Background()
	a, _ := m.Login(ctx, "ana", "pw")
	b, _ := m.Login(ctx, "ana", "pw")
	if a.ID == b.ID {
		t.Fatal("expected distinct session ids")
	}
	_ = m.Logout(ctx, a.ID)
	if _, err := m.Resolve(ctx, b.ID); err != nil {
		t.Fatalf("logging out one session must not affect another: %v", err)
	}
}

func TestMemoryStoreEvictsExpiredOnSave(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	stale := Session{ID: "stale", Username: "ana", ExpiresAt: now.Add(-time.Minute)}
	live := Session{ID: "live", Username: "bea", ExpiresAt: now.Add(time.Hour)}
	store.sessions[stale.ID] = stale
	if err := store.Save(ctx, live); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := store.Get(ctx, stale.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stale session evicted, got %v", err)
	}
	if _, err := store.Get(ctx, live.ID); err != nil {
		t.Fatalf("live session: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("len = %d", store.Len())
	}
}

func TestResolveOnlyManagerRefusesLogin(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	open := Session{ID: "s1", Username: "ana", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Save(ctx, open); err != nil {
		t.Fatalf("save: %v", err)
	}

	m := NewManager(nil, store, time.Hour)
	if _, err := m.Login(ctx, "ana", "pw"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if s, err := m.Resolve(ctx, open.ID); err != nil || s.Username != "ana" {
		t.Fatalf("resolve = %+v, %v", s, err)
	}
}
