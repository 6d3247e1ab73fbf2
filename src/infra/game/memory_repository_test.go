package game_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/shared"
	gameinfra "github.com/sandai/arena/src/infra/game"
)

func newSession(t *testing.T, id string, created time.Time) *game.Session {
	t.Helper()
	s, err := game.NewSession(shared.SessionID(id), game.KindRemote, 3, "alice", created)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return s
}

func TestMemoryRepository_CopiesRecords(t *testing.T) {
	repo := gameinfra.NewMemoryRepository()
	ctx := context.Background()
	s := newSession(t, "s-1", time.Now())

	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := repo.Create(ctx, s); !errors.Is(err, shared.ErrConflict) {
		t.Errorf("Expected ErrConflict on duplicate, got %v", err)
	}

	s.Name = "mutated after create"
	got, err := repo.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Name != "" {
		t.Errorf("Expected stored copy to be unaffected, got name %q", got.Name)
	}

	missing := newSession(t, "s-2", time.Now())
	if err := repo.Save(ctx, missing); !errors.Is(err, game.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryRepository_ListOrdering(t *testing.T) {
	repo := gameinfra.NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	add := func(id string, round int, offset time.Duration, p1, p2 shared.PlayerID) {
		s := newSession(t, id, base.Add(offset))
		if err := s.Schedule("t-1", round, p1, p2); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	add("r2", 2, 0, "alice", "carol")
	add("r1b", 1, 2*time.Second, "carol", "dave")
	add("r1a", 1, time.Second, "alice", "bob")
	if err := repo.Create(ctx, newSession(t, "adhoc", base)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	list, err := repo.ListByTournament(ctx, "t-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	var order []shared.SessionID
	for _, s := range list {
		order = append(order, s.ID)
	}
	want := []shared.SessionID{"r1a", "r1b", "r2"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}

	carol, _ := repo.ListByPlayer(ctx, "carol")
	if len(carol) != 2 {
		t.Errorf("Expected 2 sessions for carol, got %d", len(carol))
	}
}
