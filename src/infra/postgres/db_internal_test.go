package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sandai/arena/src/domain/shared"
)

func TestMapWriteError(t *testing.T) {
	dup := fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})
	if err := mapWriteError("create session", dup); !errors.Is(err, shared.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}

	other := &pgconn.PgError{Code: pgerrcode.NotNullViolation}
	err := mapWriteError("create session", other)
	if errors.Is(err, shared.ErrConflict) {
		t.Errorf("Expected non-conflict error, got %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Errorf("Expected wrapped PgError, got %v", err)
	}
}

func TestPlayerIDConversion(t *testing.T) {
	ids := []shared.PlayerID{"a", "b"}
	back := toPlayerIDs(playerIDs(ids))
	if len(back) != 2 || back[0] != "a" || back[1] != "b" {
		t.Errorf("Expected [a b], got %v", back)
	}
}

func TestMigrationSource(t *testing.T) {
	found, err := migrationSource().FindMigrations()
	if err != nil {
		t.Fatalf("Expected embedded migrations, got %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("Expected 1 migration, got %d", len(found))
	}
	first := found[0]
	if first.Id != "0001_init.sql" {
		t.Errorf("Expected 0001_init.sql, got %s", first.Id)
	}
	up := strings.Join(first.Up, "\n")
	for _, table := range []string{"players", "tournaments", "sessions"} {
		if !strings.Contains(up, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("Expected up migration to create %s", table)
		}
	}
	if len(first.Down) != 3 {
		t.Errorf("Expected 3 down statements, got %d", len(first.Down))
	}
}
