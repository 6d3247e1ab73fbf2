package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/shared"
)

const sessionColumns = `id, name, kind, status, player1, player2, created_by, rounds_needed,
	round_number, tournament_id, winner, start_time, end_time, created_at`

// SessionRepository implements game.Repository.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, s *game.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		string(s.ID), s.Name, string(s.Kind), string(s.Status),
		string(s.Player1), string(s.Player2), string(s.CreatedBy),
		s.RoundsNeeded, s.RoundNumber, string(s.TournamentID), string(s.Winner),
		s.StartTime, s.EndTime, s.CreatedAt,
	)
	if err != nil {
		return mapWriteError("create session", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id shared.SessionID) (*game.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, string(id))
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) Save(ctx context.Context, s *game.Session) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET name = $2, kind = $3, status = $4, player1 = $5, player2 = $6,
		   created_by = $7, rounds_needed = $8, round_number = $9, tournament_id = $10,
		   winner = $11, start_time = $12, end_time = $13
		 WHERE id = $1`,
		string(s.ID), s.Name, string(s.Kind), string(s.Status),
		string(s.Player1), string(s.Player2), string(s.CreatedBy),
		s.RoundsNeeded, s.RoundNumber, string(s.TournamentID), string(s.Winner),
		s.StartTime, s.EndTime,
	)
	if err != nil {
		return mapWriteError("save session", err)
	}
	if tag.RowsAffected() == 0 {
		return game.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) ListByTournament(ctx context.Context, id shared.TournamentID) ([]*game.Session, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE tournament_id = $1
		 ORDER BY round_number, created_at`, string(id))
}

func (r *SessionRepository) ListByPlayer(ctx context.Context, id shared.PlayerID) ([]*game.Session, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE player1 = $1 OR player2 = $1
		 ORDER BY round_number, created_at`, string(id))
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]*game.Session, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*game.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*game.Session, error) {
	var (
		s                                             game.Session
		id, kind, status, p1, p2, by, tourney, winner string
	)
	err := row.Scan(
		&id, &s.Name, &kind, &status, &p1, &p2, &by,
		&s.RoundsNeeded, &s.RoundNumber, &tourney, &winner,
		&s.StartTime, &s.EndTime, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ID = shared.SessionID(id)
	s.Kind = game.Kind(kind)
	s.Status = game.Status(status)
	s.Player1 = shared.PlayerID(p1)
	s.Player2 = shared.PlayerID(p2)
	s.CreatedBy = shared.PlayerID(by)
	s.TournamentID = shared.TournamentID(tourney)
	s.Winner = shared.PlayerID(winner)
	return &s, nil
}
