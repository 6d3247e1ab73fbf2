package tournaments_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandai/arena/src/app/sessions"
	"github.com/sandai/arena/src/app/tournaments"
	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/player"
	"github.com/sandai/arena/src/domain/shared"
	"github.com/sandai/arena/src/domain/tournament"
	memgame "github.com/sandai/arena/src/infra/game"
	"github.com/sandai/arena/src/infra/kv"
	memtournament "github.com/sandai/arena/src/infra/tournament"
)

// fakeNotifier records every message and answers pings on behalf of the
// clients listed in acks. A player absent from acks answers every ping; a
// player mapped to n answers only the first n.
type fakeNotifier struct {
	barrier *tournaments.Barrier

	mu    sync.Mutex
	sent  map[shared.PlayerID][]any
	acks  map[shared.PlayerID]int
	pings map[shared.PlayerID]int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		sent:  make(map[shared.PlayerID][]any),
		acks:  make(map[shared.PlayerID]int),
		pings: make(map[shared.PlayerID]int),
	}
}

func (n *fakeNotifier) Notify(ctx context.Context, user shared.PlayerID, msg any) error {
	n.mu.Lock()
	n.sent[user] = append(n.sent[user], msg)
	ping, isPing := msg.(tournaments.Ping)
	answer := false
	if isPing {
		n.pings[user]++
		limit, limited := n.acks[user]
		answer = !limited || n.pings[user] <= limit
	}
	n.mu.Unlock()

	if answer {
		return n.barrier.Acknowledge(ctx, ping.PingID, user)
	}
	return nil
}

func (n *fakeNotifier) limit(user shared.PlayerID, pings int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.acks[user] = pings
}

func (n *fakeNotifier) updates(user shared.PlayerID) []tournaments.Update {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []tournaments.Update
	for _, m := range n.sent[user] {
		if u, ok := m.(tournaments.Update); ok {
			out = append(out, u)
		}
	}
	return out
}

func (n *fakeNotifier) notices(user shared.PlayerID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.sent[user] {
		if s, ok := m.(tournaments.SystemNotice); ok {
			out = append(out, s.Message)
		}
	}
	return out
}

type fakeNames struct{}

func (fakeNames) Nickname(ctx context.Context, id shared.PlayerID) (string, error) {
	return "nick-" + string(id), nil
}

type stubPlayers struct{ fakeNames }

func (stubPlayers) Guest(ctx context.Context) (*player.Player, error) {
	return player.NewGuest(time.Now()), nil
}

func (stubPlayers) RecordResult(ctx context.Context, session *game.Session) error { return nil }

type nopGroups struct{}

func (nopGroups) Join(string, sessions.Peer)                   {}
func (nopGroups) Leave(string, sessions.Peer)                  {}
func (nopGroups) Broadcast(context.Context, string, any) error { return nil }

type countingMetrics struct {
	mu        sync.Mutex
	advanced  int
	finished  int
	cancelled int
}

func (m *countingMetrics) RoundAdvanced() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanced++
}

func (m *countingMetrics) TournamentFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished++
}

func (m *countingMetrics) TournamentCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
}

func (m *countingMetrics) BarrierChecked(bool) {}

func (m *countingMetrics) rounds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advanced
}

type bracketEnv struct {
	engine   *tournaments.Engine
	reg      *sessions.Registry
	repo     *memtournament.MemoryRepository
	games    *memgame.MemoryRepository
	notifier *fakeNotifier
	metrics  *countingMetrics
}

// newBracketEnv wires an engine on in-memory adapters. With hooked set, the
// engine advances rounds as sessions complete.
func newBracketEnv(t *testing.T, hooked bool) *bracketEnv {
	t.Helper()
	store := kv.NewMemoryStore()
	e := &bracketEnv{
		repo:     memtournament.NewMemoryRepository(),
		games:    memgame.NewMemoryRepository(),
		notifier: newFakeNotifier(),
		metrics:  &countingMetrics{},
	}
	e.reg = sessions.NewRegistry(store, e.games, stubPlayers{}, nopGroups{}, nil)

	barrier := tournaments.NewBarrier(store, e.notifier, nil)
	barrier.Timeout = 100 * time.Millisecond
	barrier.Interval = 2 * time.Millisecond
	e.notifier.barrier = barrier

	e.engine = tournaments.NewEngine(e.repo, e.games, e.reg, barrier, e.notifier, fakeNames{}, nil)
	e.engine.Config.Countdown = 0
	e.engine.Metrics = e.metrics
	e.engine.Seed(42)

	if hooked {
		e.reg.OnCompleted(e.engine.OnSessionCompleted)
	}
	t.Cleanup(func() {
		e.engine.Wait()
		e.reg.Shutdown()
	})
	return e
}

// openTournament creates an upcoming tournament joined by players.
func (e *bracketEnv) openTournament(t *testing.T, start time.Time, players ...shared.PlayerID) *tournament.Tournament {
	t.Helper()
	ctx := context.Background()
	tour, err := e.engine.Create(ctx, tournaments.CreateCommand{Name: "Cup", CreatedBy: "host", MaxPlayers: 8, StartTime: start})
	require.NoError(t, err)
	for _, p := range players {
		tour, err = e.engine.Join(ctx, tour.ID, p)
		require.NoError(t, err)
	}
	return tour
}

func (e *bracketEnv) round(t *testing.T, id shared.TournamentID, round int) []*game.Session {
	t.Helper()
	all, err := e.games.ListByTournament(context.Background(), id)
	require.NoError(t, err)
	var out []*game.Session
	for _, s := range all {
		if s.RoundNumber == round {
			out = append(out, s)
		}
	}
	return out
}

func ids(ss ...string) []shared.PlayerID {
	out := make([]shared.PlayerID, len(ss))
	for i, s := range ss {
		out[i] = shared.PlayerID(s)
	}
	return out
}
