package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/player"
	"github.com/sandai/arena/src/domain/shared"
	"github.com/sandai/arena/src/domain/tournament"
	"github.com/sandai/arena/src/infra/postgres"
)

// These run against a real database when ARENA_TEST_DATABASE_URL is set.
func openTournaments(t *testing.T) *postgres.TournamentRepository {
	t.Helper()
	url := os.Getenv("ARENA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ARENA_TEST_DATABASE_URL not set")
	}
	pool, err := postgres.Open(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return postgres.NewTournamentRepository(pool)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	url := os.Getenv("ARENA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ARENA_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := postgres.Open(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	n, err := postgres.Migrate(ctx, pool)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func newID() string { return uuid.Must(uuid.NewV4()).String() }

func TestTournamentRepository_CompareAndSwap(t *testing.T) {
	repo := openTournaments(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	tr, err := tournament.NewTournament(shared.TournamentID(newID()), "cup", "", "alice", 4, now, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tr))
	assert.ErrorIs(t, repo.Create(ctx, tr), shared.ErrConflict)

	require.NoError(t, tr.Join("alice", now))
	require.NoError(t, repo.Save(ctx, tr, 1))

	stale := tr.Clone()
	stale.CurrentRound = 2
	require.NoError(t, repo.Save(ctx, stale, 1))
	assert.ErrorIs(t, repo.Save(ctx, tr, 1), tournament.ErrStaleRound)

	got, err := repo.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentRound)
	assert.Equal(t, []shared.PlayerID{"alice"}, got.Participants)

	due, err := repo.ListDue(ctx, now.Add(time.Second))
	require.NoError(t, err)
	found := false
	for _, d := range due {
		found = found || d.ID == tr.ID
	}
	assert.True(t, found)

	require.NoError(t, repo.Delete(ctx, tr.ID))
	_, err = repo.Get(ctx, tr.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestSessionAndPlayerRepositories(t *testing.T) {
	url := os.Getenv("ARENA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ARENA_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := postgres.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	sessions := postgres.NewSessionRepository(pool)
	players := postgres.NewPlayerRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	alice, bob := shared.PlayerID(newID()), shared.PlayerID(newID())

	s, err := game.NewSession(shared.SessionID(newID()), game.KindRemote, 5, alice, now)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, s))
	require.NoError(t, s.Begin(alice, bob, now))
	require.NoError(t, sessions.Save(ctx, s))

	byPlayer, err := sessions.ListByPlayer(ctx, bob)
	require.NoError(t, err)
	require.Len(t, byPlayer, 1)
	assert.Equal(t, game.StatusOngoing, byPlayer[0].Status)
	require.NotNil(t, byPlayer[0].StartTime)

	_, err = sessions.Get(ctx, shared.SessionID(newID()))
	assert.ErrorIs(t, err, game.ErrSessionNotFound)

	p, err := player.NewPlayer(alice, "Alice", now)
	require.NoError(t, err)
	require.NoError(t, players.Save(ctx, p))
	require.NoError(t, p.SetStats(player.Stats{MatchesPlayed: 3, MatchesWon: 2}, now))
	require.NoError(t, players.Save(ctx, p))

	got, err := players.Get(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stats.MatchesWon)
}
