package sessions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/shared"
)

// Loop is the authoritative simulation of one session.
type Loop struct {
	id           shared.SessionID
	kind         game.Kind
	roundsNeeded int
	reg          *Registry
	rng          *rand.Rand
	logger       *zap.Logger

	running  atomic.Bool
	ticks    atomic.Int64
	stopOnce sync.Once
	stop     chan struct{}

	// elapsed and pending are only touched by the ticking goroutine.
	elapsed time.Duration
	pending *result
}

// result is a decided game whose completion has not been recorded yet.
type result struct {
	winner shared.PlayerID
	scores game.Scores
}

func newLoop(reg *Registry, sess *game.Session, rng *rand.Rand) *Loop {
	return &Loop{
		id:           sess.ID,
		kind:         sess.Kind,
		roundsNeeded: sess.RoundsNeeded,
		reg:          reg,
		rng:          rng,
		logger:       reg.Logger.With(zap.String("session_id", sess.ID.String())),
		stop:         make(chan struct{}),
	}
}

// Running reports whether the loop is ticking.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Ticks reports how many steps the loop completed.
func (l *Loop) Ticks() int64 {
	return l.ticks.Load()
}

func (l *Loop) claim() bool {
	select {
	case <-l.stop:
		return false
	default:
	}
	return l.running.CompareAndSwap(false, true)
}

// Stop asks the loop to exit at the next tick boundary.
func (l *Loop) Stop() {
	l.running.Store(false)
	l.stopOnce.Do(func() { close(l.stop) })
}

// Run ticks until the game ends, the loop is stopped or ctx is done.
func (l *Loop) Run(ctx context.Context) {
	l.running.Store(true)
	defer l.running.Store(false)

	ticker := time.NewTicker(l.reg.Loop.TickInterval)
	defer ticker.Stop()

	l.logger.Debug("loop started")
	for l.running.Load() {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			l.logger.Debug("loop stopped")
			return
		case <-ticker.C:
		}

		finished, err := l.Step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, shared.ErrInvariant):
			l.logger.Error("loop halted on invariant violation", zap.Error(err))
			return
		case errors.Is(err, game.ErrSessionNotFound):
			l.logger.Info("session state gone, loop exits")
			return
		default:
			l.logger.Warn("tick failed, retrying next tick", zap.Error(err))
		}
		if finished {
			return
		}
	}
}

// Step runs one tick: paddles move, then the ball once the serve delay has
// passed. It reports whether the tick ended the game.
func (l *Loop) Step(ctx context.Context) (bool, error) {
	if l.pending != nil {
		return l.finish(ctx)
	}

	var outcome game.Outcome
	var score int

	state, err := l.reg.update(ctx, l.id, func(s *game.State) error {
		game.MovePaddle(&s.Players.Player1)
		game.MovePaddle(&s.Players.Player2)

		l.elapsed += l.reg.Loop.TickInterval
		if l.elapsed < l.reg.Loop.ServeDelay {
			return nil
		}

		next, out := game.Advance(*s)
		*s = next
		outcome = out
		if !out.Scored {
			return nil
		}

		score = s.AddPoint(out.Scorer)
		if score > l.roundsNeeded {
			return fmt.Errorf("%w: %s has %d of %d", game.ErrScoreOverflow, out.Scorer, score, l.roundsNeeded)
		}
		if score < l.roundsNeeded {
			s.Ball = game.ServeBall(l.rng)
			l.elapsed = 0
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	l.ticks.Inc()

	if outcome.Scored {
		l.reg.Metrics.PointScored(l.kind)
		l.logger.Debug("point scored",
			zap.String("scorer", string(outcome.Scorer)),
			zap.Int("player1", state.Scores.Player1),
			zap.Int("player2", state.Scores.Player2),
		)
	}

	bctx, cancel := context.WithTimeout(ctx, l.reg.Loop.broadcastTimeout())
	err = l.reg.Groups.Broadcast(bctx, GroupName(l.id), newGameplay(*state))
	cancel()
	if err != nil {
		l.logger.Warn("failed to broadcast gameplay", zap.Error(err))
	}

	if outcome.Scored && score == l.roundsNeeded {
		winner, err := state.Participant(outcome.Scorer)
		if err != nil {
			return false, err
		}
		l.pending = &result{winner: winner, scores: state.Scores}
		return l.finish(ctx)
	}
	return false, nil
}

// finish records the decided game. A failed attempt leaves the result
// pending so the next tick tries again instead of simulating further.
func (l *Loop) finish(ctx context.Context) (bool, error) {
	r := l.pending
	if _, err := l.reg.Complete(ctx, l.id, r.winner, newEnding(r.scores, r.winner)); err != nil {
		return false, fmt.Errorf("complete session %s: %w", l.id, err)
	}
	l.pending = nil
	return true, nil
}
