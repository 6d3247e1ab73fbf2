package tournaments

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/sandai/arena/src/app/sessions"
	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/shared"
	"github.com/sandai/arena/src/domain/tournament"
)

// Notifier delivers a message to one user's notification channel.
type Notifier interface {
	Notify(ctx context.Context, user shared.PlayerID, msg any) error
}

// Names resolves display names.
type Names interface {
	Nickname(ctx context.Context, id shared.PlayerID) (string, error)
}

// Matches creates and tears down tournament sessions.
type Matches interface {
	ScheduleMatch(ctx context.Context, cmd sessions.ScheduleCommand) (*game.Session, error)
	Interrupt(ctx context.Context, id shared.SessionID) (bool, error)
}

// SessionLister reads the sessions of a tournament.
type SessionLister interface {
	ListByTournament(ctx context.Context, id shared.TournamentID) ([]*game.Session, error)
}

// Metrics receives bracket lifecycle events.
type Metrics interface {
	RoundAdvanced()
	TournamentFinished()
	TournamentCancelled()
	BarrierChecked(ok bool)
}

type nopMetrics struct{}

func (nopMetrics) RoundAdvanced()       {}
func (nopMetrics) TournamentFinished()  {}
func (nopMetrics) TournamentCancelled() {}
func (nopMetrics) BarrierChecked(bool)  {}

var (
	ErrNotEnoughPlayers = fmt.Errorf("tournament has too few participants: %w", shared.ErrInvalidState)
	ErrNotReady         = fmt.Errorf("participants missed the readiness check: %w", shared.ErrTimeout)
	ErrLaunchInProgress = fmt.Errorf("tournament launch already running: %w", shared.ErrConflict)
)

// Config holds bracket timings.
type Config struct {
	RoundsNeeded    int
	MinParticipants int
	// Countdown separates the pairing announcement from the readiness check.
	Countdown time.Duration
}

var DefaultConfig = Config{
	RoundsNeeded:    3,
	MinParticipants: 3,
	Countdown:       5 * time.Second,
}

// Engine runs tournaments from launch to their final match.
type Engine struct {
	Repo     tournament.Repository
	Sessions SessionLister
	Matches  Matches
	Barrier  *Barrier
	Notifier Notifier
	Names    Names
	Metrics  Metrics
	Config   Config
	Logger   *zap.Logger
	Clock    func() time.Time
	NewID    func() shared.TournamentID

	rngMu sync.Mutex
	rng   *rand.Rand

	locks     shared.KeyMutex
	mu        sync.Mutex
	launching map[shared.TournamentID]struct{}
	wg        sync.WaitGroup
}

func NewEngine(repo tournament.Repository, sessionList SessionLister, matches Matches, barrier *Barrier, notifier Notifier, names Names, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Repo:     repo,
		Sessions: sessionList,
		Matches:  matches,
		Barrier:  barrier,
		Notifier: notifier,
		Names:    names,
		Metrics:  nopMetrics{},
		Config:   DefaultConfig,
		Logger:   logger,
		Clock:    func() time.Time { return time.Now().UTC() },
		NewID: func() shared.TournamentID {
			return shared.TournamentID(uuid.Must(uuid.NewV4()).String())
		},
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		launching: make(map[shared.TournamentID]struct{}),
	}
}

// Seed makes pairings reproducible.
func (e *Engine) Seed(seed uint64) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng = rand.New(rand.NewPCG(seed, seed))
}

// CreateCommand contains parameters for creating a tournament.
type CreateCommand struct {
	Name        string
	Description string
	CreatedBy   shared.PlayerID
	MaxPlayers  int
	StartTime   time.Time
}

// Create registers an upcoming tournament.
func (e *Engine) Create(ctx context.Context, cmd CreateCommand) (*tournament.Tournament, error) {
	t, err := tournament.NewTournament(e.NewID(), cmd.Name, cmd.Description, cmd.CreatedBy, cmd.MaxPlayers, cmd.StartTime, e.Clock())
	if err != nil {
		return nil, err
	}
	if err := e.Repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get retrieves a tournament by ID.
func (e *Engine) Get(ctx context.Context, id shared.TournamentID) (*tournament.Tournament, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return e.Repo.Get(ctx, id)
}

// List retrieves a page of tournaments.
func (e *Engine) List(ctx context.Context, limit, offset int) ([]*tournament.Tournament, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return e.Repo.List(ctx, limit, offset)
}

// Join enrolls player in an upcoming tournament.
func (e *Engine) Join(ctx context.Context, id shared.TournamentID, player shared.PlayerID) (*tournament.Tournament, error) {
	return e.mutate(ctx, id, func(t *tournament.Tournament) error {
		return t.Join(player, e.Clock())
	})
}

// Withdraw removes player from an upcoming tournament.
func (e *Engine) Withdraw(ctx context.Context, id shared.TournamentID, player shared.PlayerID) (*tournament.Tournament, error) {
	return e.mutate(ctx, id, func(t *tournament.Tournament) error {
		return t.Withdraw(player, e.Clock())
	})
}

func (e *Engine) mutate(ctx context.Context, id shared.TournamentID, fn func(*tournament.Tournament) error) (*tournament.Tournament, error) {
	unlock := e.locks.Lock(string(id))
	defer unlock()

	t, err := e.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	round := t.CurrentRound
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := e.Repo.Save(ctx, t, round); err != nil {
		return nil, err
	}
	return t, nil
}

// Match is one scheduled session of a round.
type Match struct {
	SessionID shared.SessionID
	Player1   shared.PlayerID
	Player2   shared.PlayerID
}

// RoundPlan is what a round transition produced.
type RoundPlan struct {
	Advanced bool
	Round    int
	Matches  []Match
	Bye      shared.PlayerID
	Finished bool
	Winner   shared.PlayerID
}

// players lists everyone still in the bracket for this round.
func (p RoundPlan) players() []shared.PlayerID {
	out := make([]shared.PlayerID, 0, 2*len(p.Matches)+1)
	for _, m := range p.Matches {
		out = append(out, m.Player1, m.Player2)
	}
	if p.Bye != "" {
		out = append(out, p.Bye)
	}
	return out
}

// GenerateInitialMatches draws the first round of an ongoing tournament and
// creates its sessions.
func (e *Engine) GenerateInitialMatches(ctx context.Context, t *tournament.Tournament) (RoundPlan, error) {
	e.rngMu.Lock()
	draw, err := tournament.DrawInitial(t.Participants, e.rng)
	e.rngMu.Unlock()
	if err != nil {
		return RoundPlan{}, err
	}

	t.ByePlayer = draw.Bye
	t.UpdatedAt = e.Clock()
	if err := e.Repo.Save(ctx, t, t.CurrentRound); err != nil {
		return RoundPlan{}, err
	}
	matches, err := e.schedule(ctx, t.ID, t.CurrentRound, draw.Pairs)
	if err != nil {
		return RoundPlan{}, err
	}
	return RoundPlan{Advanced: true, Round: t.CurrentRound, Matches: matches, Bye: draw.Bye}, nil
}

// schedule creates one session per pair. On failure the sessions created so
// far are interrupted again.
func (e *Engine) schedule(ctx context.Context, id shared.TournamentID, round int, pairs []tournament.Pair) ([]Match, error) {
	matches := make([]Match, 0, len(pairs))
	for _, p := range pairs {
		sess, err := e.Matches.ScheduleMatch(ctx, sessions.ScheduleCommand{
			TournamentID: id,
			Round:        round,
			Player1:      p.Player1,
			Player2:      p.Player2,
			RoundsNeeded: e.Config.RoundsNeeded,
		})
		if err != nil {
			e.discard(ctx, matches)
			return nil, fmt.Errorf("schedule round %d match: %w", round, err)
		}
		matches = append(matches, Match{SessionID: sess.ID, Player1: p.Player1, Player2: p.Player2})
	}
	return matches, nil
}

// discard interrupts sessions of a round transition that did not happen.
func (e *Engine) discard(ctx context.Context, matches []Match) {
	for _, m := range matches {
		if _, err := e.Matches.Interrupt(ctx, m.SessionID); err != nil {
			e.Logger.Warn("failed to discard scheduled session", zap.String("session_id", m.SessionID.String()), zap.Error(err))
		}
	}
}

// AdvanceRound moves the bracket on once every session of the current round
// is settled. It is a no-op while a match is still open, and only one of
// several concurrent callers performs a given transition.
func (e *Engine) AdvanceRound(ctx context.Context, id shared.TournamentID) (RoundPlan, error) {
	unlock := e.locks.Lock(string(id))
	defer unlock()

	t, err := e.Repo.Get(ctx, id)
	if err != nil {
		return RoundPlan{}, err
	}
	if t.Status != tournament.StatusOngoing {
		return RoundPlan{}, nil
	}

	all, err := e.Sessions.ListByTournament(ctx, id)
	if err != nil {
		return RoundPlan{}, err
	}
	var current int
	var winners []shared.PlayerID
	for _, s := range all {
		if s.RoundNumber != t.CurrentRound {
			continue
		}
		current++
		if s.IsOpen() || s.Status == game.StatusWaiting {
			return RoundPlan{}, nil
		}
		if s.Status == game.StatusCompleted && s.Winner != "" {
			winners = append(winners, s.Winner)
		}
	}
	if current == 0 {
		return RoundPlan{}, nil
	}

	e.rngMu.Lock()
	draw := tournament.DrawNextRound(winners, t.ByePlayer, e.rng)
	e.rngMu.Unlock()

	round := t.CurrentRound
	now := e.Clock()
	logger := e.Logger.With(zap.String("tournament_id", id.String()))
	if draw.Finished() {
		if err := t.Finish(draw.Champion, now); err != nil {
			return RoundPlan{}, err
		}
		if err := e.Repo.Save(ctx, t, round); err != nil {
			if errors.Is(err, tournament.ErrStaleRound) {
				return RoundPlan{}, nil
			}
			return RoundPlan{}, err
		}
		e.Metrics.TournamentFinished()
		logger.Info("tournament completed", zap.String("winner", draw.Champion.String()), zap.Int("rounds", round))
		return RoundPlan{Advanced: true, Round: round, Finished: true, Winner: draw.Champion}, nil
	}

	// Sessions of the next round exist before the bracket moves to it.
	matches, err := e.schedule(ctx, id, round+1, draw.Pairs)
	if err != nil {
		return RoundPlan{}, err
	}
	if err := t.NextRound(draw.Bye, now); err != nil {
		e.discard(ctx, matches)
		return RoundPlan{}, err
	}
	if err := e.Repo.Save(ctx, t, round); err != nil {
		e.discard(ctx, matches)
		if errors.Is(err, tournament.ErrStaleRound) {
			return RoundPlan{}, nil
		}
		return RoundPlan{}, err
	}

	e.Metrics.RoundAdvanced()
	logger.Info("tournament round advanced",
		zap.Int("round", t.CurrentRound),
		zap.Int("matches", len(matches)),
		zap.String("bye", draw.Bye.String()),
	)
	return RoundPlan{Advanced: true, Round: t.CurrentRound, Matches: matches, Bye: draw.Bye}, nil
}

// OnSessionCompleted is the completion hook of the session registry. Round
// advancement and the follow-up announcements run in the background; Wait
// blocks until they are done.
func (e *Engine) OnSessionCompleted(ctx context.Context, sess *game.Session) {
	if !sess.IsTournament() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	id := sess.TournamentID

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		plan, err := e.AdvanceRound(ctx, id)
		if err != nil {
			e.Logger.Error("failed to advance tournament", zap.String("tournament_id", id.String()), zap.Error(err))
			return
		}
		if !plan.Advanced || plan.Finished {
			return
		}
		if err := e.announce(ctx, id, plan); err != nil {
			e.Logger.Warn("round announcement failed", zap.String("tournament_id", id.String()), zap.Error(err))
		}
	}()
}

// Wait blocks until every background tournament task has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// LaunchAsync starts Launch in the background.
func (e *Engine) LaunchAsync(ctx context.Context, id shared.TournamentID) error {
	t, err := e.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != tournament.StatusUpcoming {
		return tournament.ErrTournamentStarted
	}
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.Launch(ctx, id); err != nil && !errors.Is(err, ErrLaunchInProgress) {
			e.Logger.Warn("tournament launch failed", zap.String("tournament_id", id.String()), zap.Error(err))
		}
	}()
	return nil
}

// Launch checks that everybody is there, starts the tournament, draws the
// first round and announces it.
func (e *Engine) Launch(ctx context.Context, id shared.TournamentID) (RoundPlan, error) {
	e.mu.Lock()
	if _, busy := e.launching[id]; busy {
		e.mu.Unlock()
		return RoundPlan{}, ErrLaunchInProgress
	}
	e.launching[id] = struct{}{}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.launching, id)
		e.mu.Unlock()
	}()

	t, err := e.Repo.Get(ctx, id)
	if err != nil {
		return RoundPlan{}, err
	}
	if t.Status != tournament.StatusUpcoming {
		return RoundPlan{}, tournament.ErrTournamentStarted
	}
	logger := e.Logger.With(zap.String("tournament_id", id.String()))

	if len(t.Participants) < e.Config.MinParticipants {
		logger.Info("tournament cancelled for lack of players", zap.Int("participants", len(t.Participants)))
		if err := e.Cancel(ctx, id, NoticeNotEnoughPlayers); err != nil {
			return RoundPlan{}, err
		}
		return RoundPlan{}, ErrNotEnoughPlayers
	}

	ok, err := e.Barrier.Check(ctx, t.Participants, id)
	if err != nil {
		return RoundPlan{}, err
	}
	e.Metrics.BarrierChecked(ok)
	if !ok {
		if err := e.Cancel(ctx, id, NoticeDroppedBeforeStart); err != nil {
			return RoundPlan{}, err
		}
		return RoundPlan{}, ErrNotReady
	}

	plan, err := e.start(ctx, id)
	if err != nil {
		return RoundPlan{}, err
	}
	logger.Info("tournament started", zap.Int("matches", len(plan.Matches)), zap.String("bye", plan.Bye.String()))

	if err := e.announce(ctx, id, plan); err != nil {
		return plan, err
	}
	return plan, nil
}

func (e *Engine) start(ctx context.Context, id shared.TournamentID) (RoundPlan, error) {
	unlock := e.locks.Lock(string(id))
	defer unlock()

	t, err := e.Repo.Get(ctx, id)
	if err != nil {
		return RoundPlan{}, err
	}
	round := t.CurrentRound
	if err := t.Start(e.Clock()); err != nil {
		return RoundPlan{}, err
	}
	if err := e.Repo.Save(ctx, t, round); err != nil {
		return RoundPlan{}, err
	}
	return e.GenerateInitialMatches(ctx, t)
}

// announce runs the countdown, the readiness check and the match handout of
// a freshly drawn round.
func (e *Engine) announce(ctx context.Context, id shared.TournamentID, plan RoundPlan) error {
	e.sendPairings(ctx, id, plan, UpdateStartCountdown)

	if e.Config.Countdown > 0 {
		timer := time.NewTimer(e.Config.Countdown)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	ok, err := e.Barrier.Check(ctx, plan.players(), id)
	if err != nil {
		return err
	}
	e.Metrics.BarrierChecked(ok)
	if !ok {
		if err := e.Cancel(ctx, id, NoticeDroppedDuringPlay); err != nil {
			return err
		}
		return ErrNotReady
	}

	e.sendPairings(ctx, id, plan, UpdateGo)
	if plan.Bye != "" {
		e.notice(ctx, id, plan.Bye, NoticeBye)
	}
	return nil
}

func (e *Engine) sendPairings(ctx context.Context, id shared.TournamentID, plan RoundPlan, message string) {
	for _, m := range plan.Matches {
		for _, side := range [2][2]shared.PlayerID{{m.Player1, m.Player2}, {m.Player2, m.Player1}} {
			opponent, err := e.Names.Nickname(ctx, side[1])
			if err != nil {
				opponent = string(side[1])
			}
			update := Update{
				Type:         "tournament_update",
				Message:      message,
				GameID:       m.SessionID,
				OpponentName: opponent,
				TournamentID: id,
			}
			if err := e.Notifier.Notify(ctx, side[0], update); err != nil {
				e.Logger.Warn("failed to send tournament update", zap.String("player_id", side[0].String()), zap.Error(err))
			}
		}
	}
}

func (e *Engine) notice(ctx context.Context, id shared.TournamentID, to shared.PlayerID, message string) {
	name, err := e.Names.Nickname(ctx, to)
	if err != nil {
		name = string(to)
	}
	if err := e.Notifier.Notify(ctx, to, newSystemNotice(message, to, name, id)); err != nil {
		e.Logger.Warn("failed to send system notice", zap.String("player_id", to.String()), zap.Error(err))
	}
}

// Cancel tells every participant why the tournament stops, interrupts its
// unfinished sessions and deletes it.
func (e *Engine) Cancel(ctx context.Context, id shared.TournamentID, reason string) error {
	unlock := e.locks.Lock(string(id))
	defer unlock()

	t, err := e.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range t.Participants {
		e.notice(ctx, id, p, reason)
	}

	all, err := e.Sessions.ListByTournament(ctx, id)
	if err != nil {
		return err
	}
	for _, s := range all {
		if s.IsTerminal() {
			continue
		}
		if _, err := e.Matches.Interrupt(ctx, s.ID); err != nil {
			e.Logger.Warn("failed to interrupt tournament session", zap.String("session_id", s.ID.String()), zap.Error(err))
		}
	}

	if err := e.Repo.Delete(ctx, id); err != nil {
		return err
	}
	e.Metrics.TournamentCancelled()
	e.Logger.Info("tournament cancelled", zap.String("tournament_id", id.String()), zap.String("reason", reason))
	return nil
}
