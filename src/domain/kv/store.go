package kv

import (
	"context"
	"fmt"

	"github.com/sandai/arena/src/domain/shared"
)

var ErrNotFound = fmt.Errorf("kv: key not found: %w", shared.ErrNotFound)

// Store holds ephemeral blobs and member sets. Writes to a single key are
// atomic overwrites; nothing spans keys.
type Store interface {
	Put(ctx context.Context, key string, blob []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	AddToSet(ctx context.Context, key, member string) error
	Members(ctx context.Context, key string) ([]string, error)
	Clear(ctx context.Context, key string) error
}

// SessionKey is where a session's state blob lives.
func SessionKey(id shared.SessionID) string {
	return "session:" + string(id)
}

// ResponsesKey is the readiness acknowledgment set of a tournament.
func ResponsesKey(id shared.TournamentID) string {
	return "tournament_responses:" + string(id)
}
