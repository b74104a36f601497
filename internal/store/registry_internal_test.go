package store

import (
	"context"
	"errors"
	"testing"
	"time"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func liveSession(t *testing.T) LiveSession {
	t.Helper()
	repo, err := questionbank.Load(questionbank.Bank{
		Categories: []questionbank.Category{{
			Key: "demo",
			Themes: []questionbank.Theme{{
				ID:        "t1",
				Name:      "Theme 1",
				Questions: []questionbank.Question{{ID: "q1", Prompt: "?", Options: []string{"A", "B"}}},
			}},
		}},
	})
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	session, err := practicesession.Start(repo, practicesession.DefaultConfig(
		practicesession.Source{Category: "demo", Theme: "t1"},
	))
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return LiveSession{UserID: "ana", Session: session}
}

func TestMemoryRegistry_EvictsExpiredSessions(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	reg := NewMemoryRegistry(time.Hour)
	reg.now = clock.Now

	live := liveSession(t)
	reg.Create(ctx, live)

	clock.now = clock.now.Add(59 * time.Minute)
	if _, err := reg.Get(ctx, live.Session.ID); err != nil {
		t.Fatalf("session expired too early: %v", err)
	}

	clock.now = clock.now.Add(time.Minute)
	if _, err := reg.Get(ctx, live.Session.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound once the ttl elapsed, got %v", err)
	}
	if len(reg.sessions) != 0 {
		t.Errorf("expired session still held in memory")
	}
}

func TestMemoryRegistry_UpdateExtendsLifetime(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	reg := NewMemoryRegistry(time.Hour)
	reg.now = clock.Now

	live := liveSession(t)
	reg.Create(ctx, live)

	clock.now = clock.now.Add(50 * time.Minute)
	if err := reg.Update(ctx, live.Session.ID, func(LiveSession) error { return nil }); err != nil {
		t.Fatalf("update: %v", err)
	}

	clock.now = clock.now.Add(50 * time.Minute)
	if _, err := reg.Get(ctx, live.Session.ID); err != nil {
		t.Errorf("update should have extended the lifetime, got %v", err)
	}
}

func TestMemoryRegistry_CreateSweepsExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	reg := NewMemoryRegistry(time.Hour)
	reg.now = clock.Now

	old := liveSession(t)
	reg.Create(ctx, old)

	clock.now = clock.now.Add(2 * time.Hour)
	fresh := liveSession(t)
	reg.Create(ctx, fresh)

	if _, ok := reg.sessions[old.Session.ID]; ok {
		t.Error("expected the expired session to be swept on create")
	}
	if _, ok := reg.sessions[fresh.Session.ID]; !ok {
		t.Error("expected the new session to be registered")
	}
}
