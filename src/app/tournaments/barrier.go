package tournaments

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sandai/arena/src/domain/kv"
	"github.com/sandai/arena/src/domain/shared"
)

// Barrier pings participants and waits for every one of them to answer.
type Barrier struct {
	Store    kv.Store
	Notifier Notifier
	Timeout  time.Duration
	Interval time.Duration
	Logger   *zap.Logger
}

func NewBarrier(store kv.Store, notifier Notifier, logger *zap.Logger) *Barrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Barrier{
		Store:    store,
		Notifier: notifier,
		Timeout:  3 * time.Second,
		Interval: 100 * time.Millisecond,
		Logger:   logger,
	}
}

// Acknowledge records that player answered the ping of tournament id.
func (b *Barrier) Acknowledge(ctx context.Context, id shared.TournamentID, player shared.PlayerID) error {
	return b.Store.AddToSet(ctx, kv.ResponsesKey(id), string(player))
}

// Check pings every participant and reports whether all of them answered
// before the timeout. Acks from anyone else are ignored. The ack set is
// empty when Check returns.
func (b *Barrier) Check(ctx context.Context, participants []shared.PlayerID, id shared.TournamentID) (bool, error) {
	key := kv.ResponsesKey(id)
	logger := b.Logger.With(zap.String("tournament_id", id.String()))

	if err := b.Store.Clear(ctx, key); err != nil {
		return false, err
	}
	defer func() {
		if err := b.Store.Clear(context.WithoutCancel(ctx), key); err != nil {
			logger.Warn("failed to clear readiness acks", zap.Error(err))
		}
	}()

	expected := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		expected[string(p)] = struct{}{}
	}
	for _, p := range participants {
		if err := b.Notifier.Notify(ctx, p, newPing(id)); err != nil {
			logger.Warn("failed to ping participant", zap.String("player_id", p.String()), zap.Error(err))
		}
	}

	timeout := time.NewTimer(b.Timeout)
	defer timeout.Stop()
	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		members, err := b.Store.Members(ctx, key)
		if err != nil {
			logger.Warn("failed to read readiness acks", zap.Error(err))
		}
		acked := 0
		for _, m := range members {
			if _, ok := expected[m]; ok {
				acked++
			}
		}
		if acked == len(expected) {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timeout.C:
			logger.Info("readiness check timed out", zap.Int("acked", acked), zap.Int("expected", len(expected)))
			return false, nil
		case <-ticker.C:
		}
	}
}
