package tournaments

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler launches upcoming tournaments once their start time passes.
type Scheduler struct {
	Engine   *Engine
	Interval time.Duration
	Logger   *zap.Logger
}

func NewScheduler(engine *Engine, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{Engine: engine, Interval: interval, Logger: logger}
}

// Run scans for due tournaments every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick launches every due tournament in the background and returns how
// many were handed off.
func (s *Scheduler) Tick(ctx context.Context) int {
	e := s.Engine
	due, err := e.Repo.ListDue(ctx, e.Clock())
	if err != nil {
		s.Logger.Warn("failed to list due tournaments", zap.Error(err))
		return 0
	}

	launched := 0
	for _, t := range due {
		e.mu.Lock()
		_, busy := e.launching[t.ID]
		e.mu.Unlock()
		if busy {
			continue
		}
		if err := e.LaunchAsync(ctx, t.ID); err != nil {
			s.Logger.Warn("failed to launch tournament", zap.String("tournament_id", t.ID.String()), zap.Error(err))
			continue
		}
		launched++
	}
	return launched
}
