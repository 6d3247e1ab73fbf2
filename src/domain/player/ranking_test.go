package player_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sandai/arena/src/domain/player"
	"github.com/sandai/arena/src/domain/shared"
)

func newPlayer(t *testing.T, id shared.PlayerID, nick string, played, won int) *player.Player {
	t.Helper()
	p, err := player.NewPlayer(id, nick, time.Now())
	if err != nil {
		t.Fatalf("NewPlayer() failed: %v", err)
	}
	if err := p.SetStats(player.Stats{MatchesPlayed: played, MatchesWon: won}, time.Now()); err != nil {
		t.Fatalf("SetStats() failed: %v", err)
	}
	return p
}

func TestRank(t *testing.T) {
	guest := player.NewGuest(time.Now())
	_ = guest.SetStats(player.Stats{MatchesPlayed: 9, MatchesWon: 9}, time.Now())

	players := []*player.Player{
		newPlayer(t, "p-1", "ana", 4, 1),
		newPlayer(t, "p-2", "ben", 5, 3),
		newPlayer(t, "p-3", "cid", 0, 0),
		newPlayer(t, "p-4", "dee", 3, 3),
		newPlayer(t, "p-5", "eve", 2, 1),
		newPlayer(t, "p-6", "fay", 2, 1),
		guest,
	}

	got := player.Rank(players)

	want := []struct {
		id   shared.PlayerID
		rank int
	}{
		{"p-2", 1},
		{"p-4", 2},
		{"p-1", 3},
		{"p-5", 4},
		{"p-6", 4},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d standings, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].PlayerID != w.id || got[i].Rank != w.rank {
			t.Errorf("Position %d: expected %v at rank %d, got %v at rank %d", i, w.id, w.rank, got[i].PlayerID, got[i].Rank)
		}
	}
}

func TestPlayer_SetStats(t *testing.T) {
	p := newPlayer(t, "p-1", "ana", 0, 0)
	err := p.SetStats(player.Stats{MatchesPlayed: 1, MatchesWon: 2}, time.Now())
	if !errors.Is(err, player.ErrInvalidStats) {
		t.Errorf("Expected ErrInvalidStats, got %v", err)
	}
	if p.Stats.WinRate() != 0 {
		t.Errorf("Expected zero win rate, got %v", p.Stats.WinRate())
	}
}

func TestPlayer_Rename(t *testing.T) {
	p := newPlayer(t, "p-1", "ana", 0, 0)
	if p.Rename("", time.Now()) || p.Rename("ana", time.Now()) {
		t.Error("Expected empty or unchanged nickname to be ignored")
	}
	if !p.Rename("anna", time.Now()) || p.Nickname != "anna" {
		t.Errorf("Expected rename to anna, got %v", p.Nickname)
	}
}
