package tournament

import (
	"errors"
	"fmt"

	"github.com/sandai/arena/src/domain/shared"
)

var (
	ErrTournamentNotFound  = fmt.Errorf("tournament not found: %w", shared.ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant not found: %w", shared.ErrNotFound)
	ErrAlreadyParticipant  = fmt.Errorf("participant already joined: %w", shared.ErrConflict)
	ErrTournamentFull      = fmt.Errorf("tournament is full: %w", shared.ErrConflict)
	ErrTournamentStarted   = fmt.Errorf("tournament already started: %w", shared.ErrConflict)
	ErrTournamentFinished  = fmt.Errorf("tournament already finished: %w", shared.ErrInvalidState)
	ErrStaleRound          = fmt.Errorf("tournament round changed concurrently: %w", shared.ErrConflict)
	ErrNotEnoughPlayers    = errors.New("not enough players to draw a round")
)
