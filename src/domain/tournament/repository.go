package tournament

import (
	"context"
	"time"

	"github.com/sandai/arena/src/domain/shared"
)

// Repository manages tournament persistence.
type Repository interface {
	Create(ctx context.Context, tournament *Tournament) error
	Get(ctx context.Context, id shared.TournamentID) (*Tournament, error)
	// Save persists the tournament only if its stored current round still
	// equals expectedRound, otherwise it returns ErrStaleRound.
	Save(ctx context.Context, tournament *Tournament, expectedRound int) error
	Delete(ctx context.Context, id shared.TournamentID) error
	List(ctx context.Context, limit, offset int) ([]*Tournament, error)
	// ListDue returns upcoming tournaments whose start time is not after now.
	ListDue(ctx context.Context, now time.Time) ([]*Tournament, error)
}
