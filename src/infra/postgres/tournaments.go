package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sandai/arena/src/domain/shared"
	"github.com/sandai/arena/src/domain/tournament"
)

const tournamentColumns = `id, name, description, created_by, max_players, participants, bye_player,
	current_round, status, winner, start_time, created_at, updated_at`

// TournamentRepository implements tournament.Repository. Save is a
// compare-and-swap on current_round.
type TournamentRepository struct {
	pool *pgxpool.Pool
}

func NewTournamentRepository(pool *pgxpool.Pool) *TournamentRepository {
	return &TournamentRepository{pool: pool}
}

func (r *TournamentRepository) Create(ctx context.Context, t *tournament.Tournament) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tournaments (`+tournamentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(t.ID), t.Name, t.Description, string(t.CreatedBy), t.MaxPlayers,
		playerIDs(t.Participants), string(t.ByePlayer), t.CurrentRound, string(t.Status),
		string(t.Winner), t.StartTime, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("create tournament", err)
	}
	return nil
}

func (r *TournamentRepository) Get(ctx context.Context, id shared.TournamentID) (*tournament.Tournament, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, string(id))
	t, err := scanTournament(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tournament.ErrTournamentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tournament: %w", err)
	}
	return t, nil
}

func (r *TournamentRepository) Save(ctx context.Context, t *tournament.Tournament, expectedRound int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tournaments SET name = $3, description = $4, max_players = $5, participants = $6,
		   bye_player = $7, current_round = $8, status = $9, winner = $10, start_time = $11,
		   updated_at = $12
		 WHERE id = $1 AND current_round = $2`,
		string(t.ID), expectedRound, t.Name, t.Description, t.MaxPlayers,
		playerIDs(t.Participants), string(t.ByePlayer), t.CurrentRound, string(t.Status),
		string(t.Winner), t.StartTime, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save tournament: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tournaments WHERE id = $1)`, string(t.ID),
	).Scan(&exists); err != nil {
		return fmt.Errorf("save tournament: %w", err)
	}
	if !exists {
		return tournament.ErrTournamentNotFound
	}
	return tournament.ErrStaleRound
}

func (r *TournamentRepository) Delete(ctx context.Context, id shared.TournamentID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tournaments WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete tournament: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tournament.ErrTournamentNotFound
	}
	return nil
}

func (r *TournamentRepository) List(ctx context.Context, limit, offset int) ([]*tournament.Tournament, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return r.list(ctx,
		`SELECT `+tournamentColumns+` FROM tournaments ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
}

func (r *TournamentRepository) ListDue(ctx context.Context, now time.Time) ([]*tournament.Tournament, error) {
	return r.list(ctx,
		`SELECT `+tournamentColumns+` FROM tournaments WHERE status = $1 AND start_time <= $2
		 ORDER BY start_time`,
		string(tournament.StatusUpcoming), now)
}

func (r *TournamentRepository) list(ctx context.Context, query string, args ...any) ([]*tournament.Tournament, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()

	var out []*tournament.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tournament: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTournament(row pgx.Row) (*tournament.Tournament, error) {
	var (
		t                           tournament.Tournament
		id, by, bye, status, winner string
		participants                []string
	)
	err := row.Scan(
		&id, &t.Name, &t.Description, &by, &t.MaxPlayers, &participants, &bye,
		&t.CurrentRound, &status, &winner, &t.StartTime, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ID = shared.TournamentID(id)
	t.CreatedBy = shared.PlayerID(by)
	t.Participants = toPlayerIDs(participants)
	t.ByePlayer = shared.PlayerID(bye)
	t.Status = tournament.Status(status)
	t.Winner = shared.PlayerID(winner)
	return &t, nil
}
