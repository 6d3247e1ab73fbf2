package game

import (
	"context"

	"github.com/sandai/arena/src/domain/shared"
)

// Repository manages durable session records.
type Repository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id shared.SessionID) (*Session, error)
	Save(ctx context.Context, session *Session) error
	ListByTournament(ctx context.Context, id shared.TournamentID) ([]*Session, error)
	ListByPlayer(ctx context.Context, id shared.PlayerID) ([]*Session, error)
}
