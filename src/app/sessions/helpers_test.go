package sessions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sandai/arena/src/app/sessions"
	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/player"
	"github.com/sandai/arena/src/domain/shared"
	memgame "github.com/sandai/arena/src/infra/game"
	"github.com/sandai/arena/src/infra/kv"
)

type fakePeer struct {
	id string

	mu        sync.Mutex
	sent      []any
	closeCode int
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(ctx context.Context, msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

func (p *fakePeer) Close(code int, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCode = code
	return nil
}

func (p *fakePeer) messages() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.sent...)
}

func (p *fakePeer) closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCode
}

type fakeGroups struct {
	mu        sync.Mutex
	members   map[string]map[string]bool
	broadcast []any
}

func (g *fakeGroups) Join(group string, peer sessions.Peer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.members == nil {
		g.members = make(map[string]map[string]bool)
	}
	if g.members[group] == nil {
		g.members[group] = make(map[string]bool)
	}
	g.members[group][peer.ID()] = true
}

func (g *fakeGroups) Leave(group string, peer sessions.Peer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members[group], peer.ID())
}

func (g *fakeGroups) Broadcast(ctx context.Context, group string, msg any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcast = append(g.broadcast, msg)
	return nil
}

func (g *fakeGroups) size(group string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members[group])
}

// find returns the broadcast messages of type T.
func find[T any](g *fakeGroups) []T {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []T
	for _, m := range g.broadcast {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type fakePlayers struct {
	mu       sync.Mutex
	recorded []shared.SessionID
}

func (p *fakePlayers) Nickname(ctx context.Context, id shared.PlayerID) (string, error) {
	if id == player.GuestID {
		return player.GuestNickname, nil
	}
	return "nick-" + string(id), nil
}

func (p *fakePlayers) Guest(ctx context.Context) (*player.Player, error) {
	return player.NewGuest(time.Now()), nil
}

func (p *fakePlayers) RecordResult(ctx context.Context, session *game.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recorded = append(p.recorded, session.ID)
	return nil
}

type env struct {
	reg      *sessions.Registry
	proto    *sessions.Protocol
	groups   *fakeGroups
	players  *fakePlayers
	repo     *memgame.MemoryRepository
	mu       sync.Mutex
	finished []*game.Session
}

func (e *env) completed() []*game.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*game.Session(nil), e.finished...)
}

// newEnv wires a registry on in-memory adapters. The serve delay is long
// enough that background loops never move the ball.
func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		groups:  &fakeGroups{},
		players: &fakePlayers{},
		repo:    memgame.NewMemoryRepository(),
	}
	e.reg = sessions.NewRegistry(kv.NewMemoryStore(), e.repo, e.players, e.groups, nil)
	e.reg.Loop = sessions.LoopConfig{TickInterval: 5 * time.Millisecond, ServeDelay: time.Hour}
	e.reg.OnCompleted(func(ctx context.Context, s *game.Session) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.finished = append(e.finished, s)
	})
	e.proto = sessions.NewProtocol(e.reg, nil)
	t.Cleanup(e.reg.Shutdown)
	return e
}
