package game

import (
	"context"
	"slices"
	"sync"

	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/shared"
)

// MemoryRepository implements game.Repository using in-memory storage.
// Sessions are copied on the way in and out so callers never share records.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[shared.SessionID]*game.Session
}

// NewMemoryRepository creates a new in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[shared.SessionID]*game.Session),
	}
}

// Create stores a new session.
func (r *MemoryRepository) Create(ctx context.Context, session *game.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return shared.ErrConflict
	}
	c := *session
	r.sessions[session.ID] = &c
	return nil
}

// Get retrieves a session by ID.
func (r *MemoryRepository) Get(ctx context.Context, id shared.SessionID) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, game.ErrSessionNotFound
	}
	c := *session
	return &c, nil
}

// Save overwrites an existing session.
func (r *MemoryRepository) Save(ctx context.Context, session *game.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; !exists {
		return game.ErrSessionNotFound
	}
	c := *session
	r.sessions[session.ID] = &c
	return nil
}

// ListByTournament returns every session of a tournament ordered by round.
func (r *MemoryRepository) ListByTournament(ctx context.Context, id shared.TournamentID) ([]*game.Session, error) {
	return r.list(func(s *game.Session) bool { return s.TournamentID == id }), nil
}

// ListByPlayer returns every session a player holds a slot in.
func (r *MemoryRepository) ListByPlayer(ctx context.Context, id shared.PlayerID) ([]*game.Session, error) {
	return r.list(func(s *game.Session) bool { return s.Player1 == id || s.Player2 == id }), nil
}

func (r *MemoryRepository) list(match func(*game.Session) bool) []*game.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*game.Session, 0)
	for _, s := range r.sessions {
		if match(s) {
			c := *s
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *game.Session) int {
		if a.RoundNumber != b.RoundNumber {
			return a.RoundNumber - b.RoundNumber
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
