package tournament

import (
	"errors"
	"slices"
	"time"

	"github.com/sandai/arena/src/domain/shared"
)

// Status represents the lifecycle state.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// MinPlayers is the smallest bracket a tournament can be created for.
const MinPlayers = 2

// Tournament aggregate is a single-elimination bracket.
type Tournament struct {
	ID           shared.TournamentID
	Name         string
	Description  string
	CreatedBy    shared.PlayerID
	MaxPlayers   int
	Participants []shared.PlayerID
	ByePlayer    shared.PlayerID
	CurrentRound int
	Status       Status
	Winner       shared.PlayerID
	StartTime    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewTournament creates an upcoming tournament. The creator is not enrolled.
func NewTournament(
	id shared.TournamentID,
	name, description string,
	createdBy shared.PlayerID,
	maxPlayers int,
	startTime time.Time,
	now time.Time,
) (*Tournament, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("name is required")
	}
	if maxPlayers < MinPlayers {
		return nil, errors.New("max players must be at least 2")
	}
	if startTime.IsZero() {
		return nil, errors.New("start time is required")
	}

	return &Tournament{
		ID:           id,
		Name:         name,
		Description:  description,
		CreatedBy:    createdBy,
		MaxPlayers:   maxPlayers,
		CurrentRound: 1,
		Status:       StatusUpcoming,
		StartTime:    startTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasParticipant reports whether player is enrolled.
func (t *Tournament) HasParticipant(player shared.PlayerID) bool {
	return slices.Contains(t.Participants, player)
}

// Join enrolls player while the tournament is upcoming and has room.
func (t *Tournament) Join(player shared.PlayerID, now time.Time) error {
	if err := player.Validate(); err != nil {
		return err
	}
	if t.Status != StatusUpcoming {
		return ErrTournamentStarted
	}
	if t.HasParticipant(player) {
		return ErrAlreadyParticipant
	}
	if len(t.Participants) >= t.MaxPlayers {
		return ErrTournamentFull
	}
	t.Participants = append(t.Participants, player)
	t.UpdatedAt = now
	return nil
}

// Withdraw removes player before the tournament starts.
func (t *Tournament) Withdraw(player shared.PlayerID, now time.Time) error {
	if t.Status != StatusUpcoming {
		return ErrTournamentStarted
	}
	i := slices.Index(t.Participants, player)
	if i < 0 {
		return ErrParticipantNotFound
	}
	t.Participants = slices.Delete(t.Participants, i, i+1)
	t.UpdatedAt = now
	return nil
}

// Start moves the tournament into its first round.
func (t *Tournament) Start(now time.Time) error {
	switch t.Status {
	case StatusOngoing:
		return ErrTournamentStarted
	case StatusCompleted:
		return ErrTournamentFinished
	}
	t.Status = StatusOngoing
	t.CurrentRound = 1
	t.UpdatedAt = now
	return nil
}

// NextRound records the bye of the round about to be played and bumps the
// round counter.
func (t *Tournament) NextRound(bye shared.PlayerID, now time.Time) error {
	if t.Status != StatusOngoing {
		return ErrTournamentFinished
	}
	t.CurrentRound++
	t.ByePlayer = bye
	t.UpdatedAt = now
	return nil
}

// Finish closes the bracket. An empty winner is allowed when every match of
// the last round ended without one.
func (t *Tournament) Finish(winner shared.PlayerID, now time.Time) error {
	if t.Status == StatusCompleted {
		return ErrTournamentFinished
	}
	t.Winner = winner
	t.ByePlayer = ""
	t.Status = StatusCompleted
	t.UpdatedAt = now
	return nil
}

// IsDue reports whether an upcoming tournament should be launched.
func (t *Tournament) IsDue(now time.Time) bool {
	return t.Status == StatusUpcoming && !t.StartTime.After(now)
}

// Clone returns a copy that shares nothing with t.
func (t *Tournament) Clone() *Tournament {
	c := *t
	c.Participants = slices.Clone(t.Participants)
	return &c
}
