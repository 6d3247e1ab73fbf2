// Package postgres provides PostgreSQL-backed repositories for sessions,
// tournaments and players.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	migrate "github.com/heroiclabs/sql-migrate"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sandai/arena/src/domain/shared"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationTable = "arena_migrations"

func migrationSource() *migrate.EmbedFileSystemMigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{FileSystem: migrations, Root: "migrations"}
}

// Open connects a pool to url and applies pending migrations.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("database url is required")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies the embedded migrations that have not run yet and reports
// how many did.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Release()

	migrate.SetTable(migrationTable)
	n, err := migrate.Exec(ctx, conn.Conn(), migrationSource(), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("apply migrations: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func mapWriteError(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, shared.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func playerIDs(ids []shared.PlayerID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toPlayerIDs(ids []string) []shared.PlayerID {
	out := make([]shared.PlayerID, len(ids))
	for i, id := range ids {
		out[i] = shared.PlayerID(id)
	}
	return out
}
