package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sandai/arena/src/app/sessions"
	"github.com/sandai/arena/src/domain/shared"
)

// Hub keeps named groups of peers in process memory and fans messages out
// to them. Session groups and per-user notification groups share it.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[string]sessions.Peer
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		groups: make(map[string]map[string]sessions.Peer),
		logger: logger,
	}
}

// UserGroup is the notification group of one user.
func UserGroup(id shared.PlayerID) string {
	return "user_" + string(id)
}

func (h *Hub) Join(group string, peer sessions.Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]sessions.Peer)
		h.groups[group] = members
	}
	members[peer.ID()] = peer
}

func (h *Hub) Leave(group string, peer sessions.Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, peer.ID())
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Broadcast sends msg to every member of group. A failing peer does not
// stop delivery to the others.
func (h *Hub) Broadcast(ctx context.Context, group string, msg any) error {
	h.mu.RLock()
	peers := make([]sessions.Peer, 0, len(h.groups[group]))
	for _, p := range h.groups[group] {
		peers = append(peers, p)
	}
	h.mu.RUnlock()

	// Peers are written concurrently.
	errs := make([]error, len(peers))
	var wg sync.WaitGroup
	for i, p := range peers {
		wg.Go(func() {
			if err := p.Send(ctx, msg); err != nil {
				errs[i] = fmt.Errorf("peer %s: %w", p.ID(), err)
			}
		})
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		h.logger.Debug("broadcast partially failed", zap.String("group", group), zap.Error(err))
	}
	return err
}

// Notify delivers msg to every connection of user.
func (h *Hub) Notify(ctx context.Context, user shared.PlayerID, msg any) error {
	return h.Broadcast(ctx, UserGroup(user), msg)
}

// Size reports how many peers are in group.
func (h *Hub) Size(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
