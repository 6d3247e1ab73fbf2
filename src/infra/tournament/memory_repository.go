package tournament

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sandai/arena/src/domain/shared"
	"github.com/sandai/arena/src/domain/tournament"
)

// MemoryRepository implements tournament.Repository using in-memory storage.
type MemoryRepository struct {
	mu          sync.RWMutex
	tournaments map[shared.TournamentID]*tournament.Tournament
}

// NewMemoryRepository creates a new in-memory tournament repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tournaments: make(map[shared.TournamentID]*tournament.Tournament),
	}
}

// Create stores a new tournament.
func (r *MemoryRepository) Create(ctx context.Context, t *tournament.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tournaments[t.ID]; exists {
		return shared.ErrConflict
	}
	r.tournaments[t.ID] = t.Clone()
	return nil
}

// Save stores a tournament if nobody moved its round since it was read.
func (r *MemoryRepository) Save(ctx context.Context, t *tournament.Tournament, expectedRound int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.tournaments[t.ID]
	if !exists {
		return tournament.ErrTournamentNotFound
	}
	if stored.CurrentRound != expectedRound {
		return tournament.ErrStaleRound
	}
	r.tournaments[t.ID] = t.Clone()
	return nil
}

// Get retrieves a tournament by ID.
func (r *MemoryRepository) Get(ctx context.Context, id shared.TournamentID) (*tournament.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tournaments[id]
	if !exists {
		return nil, tournament.ErrTournamentNotFound
	}

	return t.Clone(), nil
}

// Delete removes a tournament.
func (r *MemoryRepository) Delete(ctx context.Context, id shared.TournamentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tournaments, id)
	return nil
}

// List retrieves a paginated list of tournaments, newest first.
func (r *MemoryRepository) List(ctx context.Context, limit, offset int) ([]*tournament.Tournament, error) {
	tournaments := r.snapshot(func(*tournament.Tournament) bool { return true })
	slices.SortFunc(tournaments, func(a, b *tournament.Tournament) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	// Apply pagination
	start := offset
	if start > len(tournaments) {
		return []*tournament.Tournament{}, nil
	}

	end := start + limit
	if end > len(tournaments) {
		end = len(tournaments)
	}

	return tournaments[start:end], nil
}

// ListDue returns upcoming tournaments whose start time has passed.
func (r *MemoryRepository) ListDue(ctx context.Context, now time.Time) ([]*tournament.Tournament, error) {
	due := r.snapshot(func(t *tournament.Tournament) bool { return t.IsDue(now) })
	slices.SortFunc(due, func(a, b *tournament.Tournament) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return due, nil
}

func (r *MemoryRepository) snapshot(match func(*tournament.Tournament) bool) []*tournament.Tournament {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*tournament.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		if match(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}
