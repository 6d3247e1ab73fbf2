package player

import (
	"context"
	"sync"

	"github.com/sandai/arena/src/domain/player"
	"github.com/sandai/arena/src/domain/shared"
)

// MemoryRepository implements player.Repository using in-memory storage.
type MemoryRepository struct {
	mu      sync.RWMutex
	players map[shared.PlayerID]player.Player
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		players: make(map[shared.PlayerID]player.Player),
	}
}

func (r *MemoryRepository) Get(ctx context.Context, id shared.PlayerID) (*player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.players[id]
	if !exists {
		return nil, player.ErrPlayerNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) Save(ctx context.Context, p *player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.players[p.ID] = *p
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*player.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, &p)
	}
	return out, nil
}
