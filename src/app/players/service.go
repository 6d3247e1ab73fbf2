package players

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/player"
	"github.com/sandai/arena/src/domain/shared"
)

// SessionHistory is the read side of the session repository used to derive
// player statistics.
type SessionHistory interface {
	ListByPlayer(ctx context.Context, id shared.PlayerID) ([]*game.Session, error)
}

// Service provisions players and keeps their statistics current.
type Service struct {
	Repo     player.Repository
	Sessions SessionHistory
	Clock    func() time.Time
	Logger   *zap.Logger
}

func NewService(repo player.Repository, sessions SessionHistory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Repo:     repo,
		Sessions: sessions,
		Clock:    func() time.Time { return time.Now().UTC() },
		Logger:   logger,
	}
}

// EnsurePlayer returns the player for id, creating it on first sight and
// refreshing its nickname when the identity provider reports a new one.
func (s *Service) EnsurePlayer(ctx context.Context, id shared.PlayerID, nickname string) (*player.Player, error) {
	now := s.Clock()
	p, err := s.Repo.Get(ctx, id)
	switch {
	case err == nil:
		if !p.Rename(nickname, now) {
			return p, nil
		}
	case errors.Is(err, shared.ErrNotFound):
		if nickname == "" {
			nickname = string(id)
		}
		p, err = player.NewPlayer(id, nickname, now)
		if err != nil {
			return nil, err
		}
		s.Logger.Info("player registered", zap.String("player_id", id.String()))
	default:
		return nil, err
	}
	if err := s.Repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Guest returns the shared synthetic opponent of local sessions.
func (s *Service) Guest(ctx context.Context) (*player.Player, error) {
	p, err := s.Repo.Get(ctx, player.GuestID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	p = player.NewGuest(s.Clock())
	if err := s.Repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Nickname resolves the display name of id, falling back to the raw id for
// players never seen through EnsurePlayer.
func (s *Service) Nickname(ctx context.Context, id shared.PlayerID) (string, error) {
	p, err := s.Repo.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return string(id), nil
	}
	if err != nil {
		return "", err
	}
	return p.Nickname, nil
}

// RecordResult recomputes the statistics of both players of a finished
// session from their completed sessions.
func (s *Service) RecordResult(ctx context.Context, session *game.Session) error {
	var errs []error
	for _, id := range []shared.PlayerID{session.Player1, session.Player2} {
		if id == "" {
			continue
		}
		if err := s.refreshStats(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("refresh stats of %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) refreshStats(ctx context.Context, id shared.PlayerID) error {
	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	history, err := s.Sessions.ListByPlayer(ctx, id)
	if err != nil {
		return err
	}
	var stats player.Stats
	for _, sess := range history {
		if sess.Status != game.StatusCompleted {
			continue
		}
		stats.MatchesPlayed++
		if sess.Winner == id {
			stats.MatchesWon++
		}
	}
	if err := p.SetStats(stats, s.Clock()); err != nil {
		return err
	}
	return s.Repo.Save(ctx, p)
}

// Ranking returns the standings of every player with a finished match.
func (s *Service) Ranking(ctx context.Context) ([]player.Standing, error) {
	all, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return player.Rank(all), nil
}
