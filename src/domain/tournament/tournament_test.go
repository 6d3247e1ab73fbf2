package tournament_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sandai/arena/src/domain/shared"
	"github.com/sandai/arena/src/domain/tournament"
)

func TestNewTournament(t *testing.T) {
	now := time.Now()
	startTime := now.Add(1 * time.Hour)

	tests := []struct {
		name       string
		id         shared.TournamentID
		title      string
		maxPlayers int
		startTime  time.Time
		wantErr    bool
	}{
		{
			name:       "valid tournament",
			id:         "tournament-123",
			title:      "Friday Cup",
			maxPlayers: 8,
			startTime:  startTime,
			wantErr:    false,
		},
		{
			name:       "empty id",
			id:         "",
			title:      "Friday Cup",
			maxPlayers: 8,
			startTime:  startTime,
			wantErr:    true,
		},
		{
			name:       "empty title",
			id:         "tournament-123",
			title:      "",
			maxPlayers: 8,
			startTime:  startTime,
			wantErr:    true,
		},
		{
			name:       "single seat",
			id:         "tournament-123",
			title:      "Friday Cup",
			maxPlayers: 1,
			startTime:  startTime,
			wantErr:    true,
		},
		{
			name:       "zero start time",
			id:         "tournament-123",
			title:      "Friday Cup",
			maxPlayers: 8,
			startTime:  time.Time{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour, err := tournament.NewTournament(tt.id, tt.title, "", "host", tt.maxPlayers, tt.startTime, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTournament() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if tour.Status != tournament.StatusUpcoming {
					t.Errorf("Expected status %v, got %v", tournament.StatusUpcoming, tour.Status)
				}
				if tour.CurrentRound != 1 {
					t.Errorf("Expected current round 1, got %v", tour.CurrentRound)
				}
			}
		})
	}
}

func TestTournament_Join(t *testing.T) {
	now := time.Now()
	tour, _ := tournament.NewTournament("tournament-123", "Cup", "", "host", 2, now, now)

	if err := tour.Join("alice", now); err != nil {
		t.Fatalf("Join() failed: %v", err)
	}
	if err := tour.Join("alice", now); !errors.Is(err, tournament.ErrAlreadyParticipant) {
		t.Errorf("Expected ErrAlreadyParticipant, got %v", err)
	}
	if err := tour.Join("bob", now); err != nil {
		t.Fatalf("Join() failed: %v", err)
	}
	err := tour.Join("carol", now)
	if !errors.Is(err, tournament.ErrTournamentFull) {
		t.Errorf("Expected ErrTournamentFull, got %v", err)
	}
	if !errors.Is(err, shared.ErrConflict) {
		t.Errorf("Expected full tournament to be a conflict, got %v", err)
	}

	if err := tour.Start(now); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := tour.Withdraw("bob", now); !errors.Is(err, tournament.ErrTournamentStarted) {
		t.Errorf("Expected ErrTournamentStarted, got %v", err)
	}
}

func TestTournament_Withdraw(t *testing.T) {
	now := time.Now()
	tour, _ := tournament.NewTournament("tournament-123", "Cup", "", "host", 4, now, now)
	_ = tour.Join("alice", now)
	_ = tour.Join("bob", now)

	if err := tour.Withdraw("alice", now); err != nil {
		t.Fatalf("Withdraw() failed: %v", err)
	}
	if tour.HasParticipant("alice") {
		t.Error("Expected alice to be removed")
	}
	if err := tour.Withdraw("alice", now); !errors.Is(err, tournament.ErrParticipantNotFound) {
		t.Errorf("Expected ErrParticipantNotFound, got %v", err)
	}
}

func TestTournament_Rounds(t *testing.T) {
	now := time.Now()
	tour, _ := tournament.NewTournament("tournament-123", "Cup", "", "host", 4, now.Add(-time.Minute), now)

	if !tour.IsDue(now) {
		t.Error("Expected tournament past its start time to be due")
	}
	if err := tour.Start(now); err != nil {
		t.Fatal(err)
	}
	if tour.IsDue(now) {
		t.Error("Expected ongoing tournament not to be due")
	}
	if err := tour.NextRound("carol", now); err != nil {
		t.Fatal(err)
	}
	if tour.CurrentRound != 2 || tour.ByePlayer != "carol" {
		t.Errorf("Expected round 2 with bye carol, got %v and %v", tour.CurrentRound, tour.ByePlayer)
	}
	if err := tour.Finish("alice", now); err != nil {
		t.Fatal(err)
	}
	if tour.Status != tournament.StatusCompleted || tour.Winner != "alice" || tour.ByePlayer != "" {
		t.Errorf("Unexpected finished tournament %+v", tour)
	}
	if err := tour.Finish("bob", now); !errors.Is(err, tournament.ErrTournamentFinished) {
		t.Errorf("Expected ErrTournamentFinished, got %v", err)
	}
}

func TestTournament_Clone(t *testing.T) {
	now := time.Now()
	tour, _ := tournament.NewTournament("tournament-123", "Cup", "", "host", 4, now, now)
	_ = tour.Join("alice", now)

	c := tour.Clone()
	c.Participants[0] = "mallory"
	if tour.Participants[0] != "alice" {
		t.Error("Expected clone not to share participants")
	}
}
