package game

import (
	"errors"
	"time"

	"github.com/sandai/arena/src/domain/shared"
)

// Status is the durable lifecycle state of a session.
type Status string

const (
	StatusWaiting     Status = "waiting"
	StatusScheduled   Status = "scheduled"
	StatusOngoing     Status = "ongoing"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
)

// Kind selects the transport variant a session is played over.
type Kind string

const (
	KindRemote Kind = "remote"
	KindLocal  Kind = "local"
)

// Session aggregate is the durable record of one two-party game.
type Session struct {
	ID           shared.SessionID
	Name         string
	Kind         Kind
	Status       Status
	Player1      shared.PlayerID
	Player2      shared.PlayerID
	CreatedBy    shared.PlayerID
	RoundsNeeded int
	RoundNumber  int
	TournamentID shared.TournamentID
	Winner       shared.PlayerID
	StartTime    *time.Time
	EndTime      *time.Time
	CreatedAt    time.Time
}

// NewSession builds a waiting session. Tournament matches are switched to
// scheduled by the caller through Schedule.
func NewSession(id shared.SessionID, kind Kind, roundsNeeded int, createdBy shared.PlayerID, now time.Time) (*Session, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if kind != KindRemote && kind != KindLocal {
		return nil, errors.New("session kind must be local or remote")
	}
	if roundsNeeded < 1 {
		return nil, errors.New("rounds needed must be at least 1")
	}
	return &Session{
		ID:           id,
		Kind:         kind,
		Status:       StatusWaiting,
		CreatedBy:    createdBy,
		RoundsNeeded: roundsNeeded,
		CreatedAt:    now,
	}, nil
}

// Schedule attaches the session to a tournament round with both players known.
func (s *Session) Schedule(tournamentID shared.TournamentID, round int, p1, p2 shared.PlayerID) error {
	if err := tournamentID.Validate(); err != nil {
		return err
	}
	if round < 1 {
		return errors.New("round must be at least 1")
	}
	s.TournamentID = tournamentID
	s.RoundNumber = round
	s.Player1 = p1
	s.Player2 = p2
	s.Status = StatusScheduled
	return nil
}

// Begin seats both participants and marks the session ongoing.
func (s *Session) Begin(p1, p2 shared.PlayerID, now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionFinished
	}
	if err := p1.Validate(); err != nil {
		return err
	}
	if err := p2.Validate(); err != nil {
		return err
	}
	s.Player1 = p1
	s.Player2 = p2
	s.Status = StatusOngoing
	s.StartTime = &now
	return nil
}

// Complete records the winner and closes the session.
func (s *Session) Complete(winner shared.PlayerID, now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionFinished
	}
	if err := winner.Validate(); err != nil {
		return err
	}
	s.Winner = winner
	s.Status = StatusCompleted
	s.EndTime = &now
	return nil
}

// Interrupt closes a session that never got both players.
func (s *Session) Interrupt(now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionFinished
	}
	s.Status = StatusInterrupted
	s.EndTime = &now
	return nil
}

// IsTerminal reports whether the session can no longer change state.
func (s *Session) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusInterrupted
}

// IsOpen reports whether the session still blocks its tournament round.
func (s *Session) IsOpen() bool {
	return s.Status == StatusScheduled || s.Status == StatusOngoing
}

func (s *Session) IsTournament() bool {
	return s.TournamentID != ""
}
