package sessions

import (
	"context"

	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/player"
	"github.com/sandai/arena/src/domain/shared"
)

// Peer is one connected client of a session.
type Peer interface {
	ID() string
	Send(ctx context.Context, msg any) error
	Close(code int, reason string) error
}

// Groups fans messages out to every peer subscribed to a named group.
type Groups interface {
	Join(group string, peer Peer)
	Leave(group string, peer Peer)
	Broadcast(ctx context.Context, group string, msg any) error
}

// Players is the participant directory the session engine reads from.
type Players interface {
	Nickname(ctx context.Context, id shared.PlayerID) (string, error)
	Guest(ctx context.Context) (*player.Player, error)
	RecordResult(ctx context.Context, session *game.Session) error
}

// CompletionHook is told about every session that reached completed.
type CompletionHook func(ctx context.Context, session *game.Session)

// Metrics receives loop and session lifecycle events.
type Metrics interface {
	LoopStarted()
	LoopStopped()
	PointScored(kind game.Kind)
	SessionFinished(kind game.Kind, status game.Status)
}

type nopMetrics struct{}

func (nopMetrics) LoopStarted()                           {}
func (nopMetrics) LoopStopped()                           {}
func (nopMetrics) PointScored(game.Kind)                  {}
func (nopMetrics) SessionFinished(game.Kind, game.Status) {}

// GroupName is the broadcast group of a session.
func GroupName(id shared.SessionID) string {
	return "game_" + string(id)
}
