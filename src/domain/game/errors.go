package game

import (
	"errors"
	"fmt"

	"github.com/sandai/arena/src/domain/shared"
)

var (
	ErrSessionNotFound  = fmt.Errorf("session not found: %w", shared.ErrNotFound)
	ErrSessionFull      = fmt.Errorf("session is full: %w", shared.ErrConflict)
	ErrAlreadyInSession = fmt.Errorf("participant already in session: %w", shared.ErrConflict)
	ErrSessionFinished  = fmt.Errorf("session already finished: %w", shared.ErrInvalidState)
	ErrScoreOverflow    = fmt.Errorf("score exceeds rounds needed: %w", shared.ErrInvariant)
	ErrUnmappedRole     = fmt.Errorf("role has no participant: %w", shared.ErrInvariant)
	ErrInvalidRole      = errors.New("invalid role")
	ErrStateVersion     = errors.New("unsupported session state version")
)
