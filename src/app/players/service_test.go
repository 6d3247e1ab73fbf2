package players_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sandai/arena/src/app/players"
	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/player"
	"github.com/sandai/arena/src/domain/shared"
	memory "github.com/sandai/arena/src/infra/player"
)

type mockSessionHistory struct {
	listByPlayerFunc func(ctx context.Context, id shared.PlayerID) ([]*game.Session, error)
}

func (m *mockSessionHistory) ListByPlayer(ctx context.Context, id shared.PlayerID) ([]*game.Session, error) {
	if m.listByPlayerFunc != nil {
		return m.listByPlayerFunc(ctx, id)
	}
	return nil, nil
}

func TestService_EnsurePlayer(t *testing.T) {
	ctx := context.Background()
	svc := players.NewService(memory.NewMemoryRepository(), &mockSessionHistory{}, nil)

	p, err := svc.EnsurePlayer(ctx, "p-1", "ana")
	if err != nil {
		t.Fatalf("EnsurePlayer() failed: %v", err)
	}
	if p.Nickname != "ana" {
		t.Errorf("Expected nickname ana, got %v", p.Nickname)
	}

	p, err = svc.EnsurePlayer(ctx, "p-1", "anna")
	if err != nil {
		t.Fatalf("EnsurePlayer() failed: %v", err)
	}
	if p.Nickname != "anna" {
		t.Errorf("Expected nickname anna, got %v", p.Nickname)
	}

	name, err := svc.Nickname(ctx, "p-1")
	if err != nil || name != "anna" {
		t.Errorf("Expected anna, got %v (%v)", name, err)
	}
	name, err = svc.Nickname(ctx, "stranger")
	if err != nil || name != "stranger" {
		t.Errorf("Expected raw id for unknown player, got %v (%v)", name, err)
	}
}

func TestService_Guest(t *testing.T) {
	ctx := context.Background()
	svc := players.NewService(memory.NewMemoryRepository(), &mockSessionHistory{}, nil)

	first, err := svc.Guest(ctx)
	if err != nil {
		t.Fatalf("Guest() failed: %v", err)
	}
	second, _ := svc.Guest(ctx)
	if first.ID != player.GuestID || second.ID != first.ID || !first.IsGuest {
		t.Errorf("Expected a single shared guest, got %+v and %+v", first, second)
	}
}

func TestService_RecordResult(t *testing.T) {
	ctx := context.Background()
	history := []*game.Session{
		{ID: "s-1", Status: game.StatusCompleted, Player1: "p-1", Player2: "p-2", Winner: "p-1"},
		{ID: "s-2", Status: game.StatusCompleted, Player1: "p-2", Player2: "p-1", Winner: "p-2"},
		{ID: "s-3", Status: game.StatusInterrupted, Player1: "p-1"},
		{ID: "s-4", Status: game.StatusCompleted, Player1: "p-1", Player2: "p-3", Winner: "p-1"},
	}
	sessions := &mockSessionHistory{
		listByPlayerFunc: func(ctx context.Context, id shared.PlayerID) ([]*game.Session, error) {
			var out []*game.Session
			for _, s := range history {
				if s.Player1 == id || s.Player2 == id {
					out = append(out, s)
				}
			}
			return out, nil
		},
	}
	svc := players.NewService(memory.NewMemoryRepository(), sessions, nil)
	_, _ = svc.EnsurePlayer(ctx, "p-1", "ana")
	_, _ = svc.EnsurePlayer(ctx, "p-2", "ben")

	if err := svc.RecordResult(ctx, history[1]); err != nil {
		t.Fatalf("RecordResult() failed: %v", err)
	}

	ranking, err := svc.Ranking(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranking) != 2 {
		t.Fatalf("Expected 2 standings, got %+v", ranking)
	}
	if ranking[0].PlayerID != "p-1" || ranking[0].MatchesWon != 2 || ranking[0].MatchesPlayed != 3 {
		t.Errorf("Unexpected leader %+v", ranking[0])
	}
	if ranking[1].PlayerID != "p-2" || ranking[1].MatchesWon != 1 || ranking[1].MatchesPlayed != 2 {
		t.Errorf("Unexpected runner-up %+v", ranking[1])
	}
}

func TestService_RecordResult_HistoryFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	sessions := &mockSessionHistory{
		listByPlayerFunc: func(ctx context.Context, id shared.PlayerID) ([]*game.Session, error) {
			return nil, boom
		},
	}
	svc := players.NewService(memory.NewMemoryRepository(), sessions, nil)
	_, _ = svc.EnsurePlayer(ctx, "p-1", "ana")

	err := svc.RecordResult(ctx, &game.Session{Player1: "p-1"})
	if !errors.Is(err, boom) {
		t.Errorf("Expected history error, got %v", err)
	}
}
