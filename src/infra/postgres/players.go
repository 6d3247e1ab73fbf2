package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sandai/arena/src/domain/player"
	"github.com/sandai/arena/src/domain/shared"
)

// PlayerRepository implements player.Repository.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

func (r *PlayerRepository) Get(ctx context.Context, id shared.PlayerID) (*player.Player, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, nickname, is_guest, matches_played, matches_won, created_at, updated_at
		 FROM players WHERE id = $1`, string(id))
	p, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, player.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

// Save upserts the player.
func (r *PlayerRepository) Save(ctx context.Context, p *player.Player) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO players (id, nickname, is_guest, matches_played, matches_won, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   nickname = EXCLUDED.nickname,
		   is_guest = EXCLUDED.is_guest,
		   matches_played = EXCLUDED.matches_played,
		   matches_won = EXCLUDED.matches_won,
		   updated_at = EXCLUDED.updated_at`,
		string(p.ID), p.Nickname, p.IsGuest, p.Stats.MatchesPlayed, p.Stats.MatchesWon,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("save player", err)
	}
	return nil
}

func (r *PlayerRepository) List(ctx context.Context) ([]*player.Player, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, nickname, is_guest, matches_played, matches_won, created_at, updated_at
		 FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []*player.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPlayer(row pgx.Row) (*player.Player, error) {
	var (
		p  player.Player
		id string
	)
	if err := row.Scan(&id, &p.Nickname, &p.IsGuest, &p.Stats.MatchesPlayed, &p.Stats.MatchesWon,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = shared.PlayerID(id)
	return &p, nil
}
