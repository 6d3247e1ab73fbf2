package player

import (
	"context"

	"github.com/sandai/arena/src/domain/shared"
)

type Repository interface {
	Get(ctx context.Context, id shared.PlayerID) (*Player, error)
	Save(ctx context.Context, player *Player) error
	List(ctx context.Context) ([]*Player, error)
}
