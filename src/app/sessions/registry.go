package sessions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/kv"
	"github.com/sandai/arena/src/domain/shared"
)

// LoopConfig tunes every loop the registry builds.
type LoopConfig struct {
	TickInterval time.Duration
	// ServeDelay holds the ball still after every serve.
	ServeDelay time.Duration
	// BroadcastTimeout bounds the gameplay fan-out of one tick. Zero means
	// one tick interval.
	BroadcastTimeout time.Duration
}

// DefaultLoopConfig runs at 60 Hz with a three second serve delay.
var DefaultLoopConfig = LoopConfig{
	TickInterval:     time.Second / 60,
	ServeDelay:       3 * time.Second,
	BroadcastTimeout: 250 * time.Millisecond,
}

func (c LoopConfig) broadcastTimeout() time.Duration {
	if c.BroadcastTimeout > 0 {
		return c.BroadcastTimeout
	}
	return c.TickInterval
}

// Registry owns the live game loops of this process, at most one per
// session, and every mutation of session state in the store.
type Registry struct {
	Store    kv.Store
	Sessions game.Repository
	Players  Players
	Groups   Groups
	Metrics  Metrics
	Logger   *zap.Logger
	Loop     LoopConfig
	Clock    func() time.Time
	NewID    func() shared.SessionID
	NewRand  func() *rand.Rand

	locks  shared.KeyMutex
	mu     sync.Mutex
	loops  map[shared.SessionID]*Loop
	hooks  []CompletionHook
	active atomic.Int64
	wg     sync.WaitGroup
}

func NewRegistry(store kv.Store, sessions game.Repository, players Players, groups Groups, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		Store:    store,
		Sessions: sessions,
		Players:  players,
		Groups:   groups,
		Metrics:  nopMetrics{},
		Logger:   logger,
		Loop:     DefaultLoopConfig,
		Clock:    func() time.Time { return time.Now().UTC() },
		NewID: func() shared.SessionID {
			return shared.SessionID(uuid.Must(uuid.NewV4()).String())
		},
		NewRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		loops: make(map[shared.SessionID]*Loop),
	}
}

// OnCompleted registers a hook fired once per session that reaches completed.
func (r *Registry) OnCompleted(hook CompletionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// NewGameCommand describes an ad-hoc session.
type NewGameCommand struct {
	Kind         game.Kind
	RoundsNeeded int
	CreatedBy    shared.PlayerID
	Name         string
}

// NewGame persists a waiting session and its opening state.
func (r *Registry) NewGame(ctx context.Context, cmd NewGameCommand) (*game.Session, error) {
	sess, err := game.NewSession(r.NewID(), cmd.Kind, cmd.RoundsNeeded, cmd.CreatedBy, r.Clock())
	if err != nil {
		return nil, err
	}
	sess.Name = cmd.Name
	if err := r.Sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	if err := r.CreateSession(ctx, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// ScheduleCommand describes one tournament match.
type ScheduleCommand struct {
	TournamentID shared.TournamentID
	Round        int
	Player1      shared.PlayerID
	Player2      shared.PlayerID
	RoundsNeeded int
}

// ScheduleMatch persists a scheduled tournament session and its opening state.
func (r *Registry) ScheduleMatch(ctx context.Context, cmd ScheduleCommand) (*game.Session, error) {
	sess, err := game.NewSession(r.NewID(), game.KindRemote, cmd.RoundsNeeded, cmd.Player1, r.Clock())
	if err != nil {
		return nil, err
	}
	if err := sess.Schedule(cmd.TournamentID, cmd.Round, cmd.Player1, cmd.Player2); err != nil {
		return nil, err
	}
	if err := r.Sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	if err := r.CreateSession(ctx, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// CreateSession writes a fresh opening state, replacing any previous one.
func (r *Registry) CreateSession(ctx context.Context, id shared.SessionID) error {
	unlock := r.locks.Lock(string(id))
	defer unlock()
	return r.putState(ctx, id, game.NewState())
}

// GetState reads the current state of a session.
func (r *Registry) GetState(ctx context.Context, id shared.SessionID) (*game.State, error) {
	blob, err := r.Store.Get(ctx, kv.SessionKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load state of %s: %w", id, err)
	}
	return game.DecodeState(blob)
}

// SaveState overwrites the state of a session.
func (r *Registry) SaveState(ctx context.Context, id shared.SessionID, state *game.State) error {
	unlock := r.locks.Lock(string(id))
	defer unlock()
	return r.putState(ctx, id, state)
}

func (r *Registry) putState(ctx context.Context, id shared.SessionID, state *game.State) error {
	blob, err := game.EncodeState(state)
	if err != nil {
		return err
	}
	if err := r.Store.Put(ctx, kv.SessionKey(id), blob); err != nil {
		return fmt.Errorf("store state of %s: %w", id, err)
	}
	return nil
}

// update applies fn to the stored state under the session lock and persists
// the result unless fn fails.
func (r *Registry) update(ctx context.Context, id shared.SessionID, fn func(*game.State) error) (*game.State, error) {
	unlock := r.locks.Lock(string(id))
	defer unlock()

	state, err := r.GetState(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return nil, err
	}
	if err := r.putState(ctx, id, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Exists reports whether a session has live state.
func (r *Registry) Exists(ctx context.Context, id shared.SessionID) (bool, error) {
	return r.Store.Exists(ctx, kv.SessionKey(id))
}

// IsParticipant reports whether participant holds a role in the session.
func (r *Registry) IsParticipant(ctx context.Context, id shared.SessionID, participant shared.PlayerID) (bool, error) {
	state, err := r.GetState(ctx, id)
	if err != nil {
		return false, err
	}
	_, ok := state.RoleOf(participant)
	return ok, nil
}

// AddPlayer assigns participant to the first free role.
func (r *Registry) AddPlayer(ctx context.Context, id shared.SessionID, participant shared.PlayerID) (game.Role, error) {
	var role game.Role
	_, err := r.update(ctx, id, func(s *game.State) error {
		var err error
		role, err = s.AddParticipant(participant)
		return err
	})
	return role, err
}

// SetSlide records the movement flag of a paddle.
func (r *Registry) SetSlide(ctx context.Context, id shared.SessionID, role game.Role, slide game.Slide) error {
	_, err := r.update(ctx, id, func(s *game.State) error {
		s.Paddle(role).Slide = slide
		return nil
	})
	return err
}

// GetOrCreateLoop returns the cached loop of a session, building one from
// the persisted session if none exists yet.
func (r *Registry) GetOrCreateLoop(ctx context.Context, id shared.SessionID) (*Loop, error) {
	if l, ok := r.loop(id); ok {
		return l, nil
	}

	unlock := r.locks.Lock("loop:" + string(id))
	defer unlock()
	if l, ok := r.loop(id); ok {
		return l, nil
	}
	if ok, err := r.Exists(ctx, id); err != nil {
		return nil, err
	} else if !ok {
		return nil, game.ErrSessionNotFound
	}
	sess, err := r.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	l := newLoop(r, sess, r.NewRand())
	r.mu.Lock()
	r.loops[id] = l
	r.mu.Unlock()
	return l, nil
}

func (r *Registry) loop(id shared.SessionID) (*Loop, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loops[id]
	return l, ok
}

// Start runs the session loop in the background. Starting a running loop
// is a no-op.
func (r *Registry) Start(ctx context.Context, id shared.SessionID) error {
	l, err := r.GetOrCreateLoop(ctx, id)
	if err != nil {
		return err
	}
	if !l.claim() {
		return nil
	}

	r.wg.Add(1)
	r.active.Inc()
	r.Metrics.LoopStarted()
	go func() {
		defer r.wg.Done()
		defer r.Metrics.LoopStopped()
		defer r.active.Dec()
		l.Run(context.WithoutCancel(ctx))
		r.evict(id, l)
	}()
	return nil
}

// Stop halts the session loop and forgets it.
func (r *Registry) Stop(id shared.SessionID) {
	r.mu.Lock()
	l, ok := r.loops[id]
	delete(r.loops, id)
	r.mu.Unlock()

	if ok {
		l.Stop()
	}
}

func (r *Registry) evict(id shared.SessionID, l *Loop) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loops[id] == l {
		delete(r.loops, id)
	}
}

// RunningLoops reports how many loop goroutines are alive.
func (r *Registry) RunningLoops() int {
	return int(r.active.Load())
}

// Shutdown stops every loop and waits for them to exit.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	loops := make([]*Loop, 0, len(r.loops))
	for id, l := range r.loops {
		loops = append(loops, l)
		delete(r.loops, id)
	}
	r.mu.Unlock()

	for _, l := range loops {
		l.Stop()
	}
	r.wg.Wait()
}

// Begin marks a session ongoing once both roles are held.
func (r *Registry) Begin(ctx context.Context, id shared.SessionID, state *game.State) (bool, *game.Session, error) {
	unlock := r.locks.Lock(string(id))
	defer unlock()

	sess, err := r.Sessions.Get(ctx, id)
	if err != nil {
		return false, nil, err
	}
	if sess.Status == game.StatusOngoing || sess.IsTerminal() {
		return false, sess, nil
	}
	p1, err := state.Participant(game.RolePlayer1)
	if err != nil {
		return false, sess, nil
	}
	p2, err := state.Participant(game.RolePlayer2)
	if err != nil {
		return false, sess, nil
	}
	if err := sess.Begin(p1, p2, r.Clock()); err != nil {
		return false, nil, err
	}
	if err := r.Sessions.Save(ctx, sess); err != nil {
		return false, nil, err
	}
	return true, sess, nil
}

// Complete records winner on a session that is not yet terminal, tells the
// group with msg, stops the loop and fires the completion hooks. It reports
// whether this call was the one that closed the session.
func (r *Registry) Complete(ctx context.Context, id shared.SessionID, winner shared.PlayerID, msg any) (bool, error) {
	unlock := r.locks.Lock(string(id))
	sess, err := r.Sessions.Get(ctx, id)
	if err != nil {
		unlock()
		return false, err
	}
	if sess.IsTerminal() {
		unlock()
		return false, nil
	}
	if err := sess.Complete(winner, r.Clock()); err != nil {
		unlock()
		return false, err
	}
	if err := r.Sessions.Save(ctx, sess); err != nil {
		unlock()
		return false, err
	}
	if err := r.Store.Clear(ctx, kv.SessionKey(id)); err != nil {
		r.Logger.Warn("failed to discard session state", zap.String("session_id", id.String()), zap.Error(err))
	}
	unlock()

	r.Metrics.SessionFinished(sess.Kind, sess.Status)
	if err := r.Groups.Broadcast(ctx, GroupName(id), msg); err != nil {
		r.Logger.Warn("failed to broadcast session end", zap.String("session_id", id.String()), zap.Error(err))
	}
	r.Stop(id)
	if err := r.Players.RecordResult(ctx, sess); err != nil {
		r.Logger.Error("failed to record session result", zap.String("session_id", id.String()), zap.Error(err))
	}

	r.Logger.Info("session completed",
		zap.String("session_id", id.String()),
		zap.String("winner", winner.String()),
		zap.String("tournament_id", sess.TournamentID.String()),
	)

	r.mu.Lock()
	hooks := append([]CompletionHook(nil), r.hooks...)
	r.mu.Unlock()
	for _, hook := range hooks {
		c := *sess
		hook(ctx, &c)
	}
	return true, nil
}

// Interrupt closes a session that cannot finish, stops its loop and drops
// its state.
func (r *Registry) Interrupt(ctx context.Context, id shared.SessionID) (bool, error) {
	unlock := r.locks.Lock(string(id))
	sess, err := r.Sessions.Get(ctx, id)
	if err != nil {
		unlock()
		return false, err
	}
	if sess.IsTerminal() {
		unlock()
		return false, nil
	}
	if err := sess.Interrupt(r.Clock()); err != nil {
		unlock()
		return false, err
	}
	if err := r.Sessions.Save(ctx, sess); err != nil {
		unlock()
		return false, err
	}
	if err := r.Store.Clear(ctx, kv.SessionKey(id)); err != nil {
		r.Logger.Warn("failed to discard session state", zap.String("session_id", id.String()), zap.Error(err))
	}
	unlock()

	r.Metrics.SessionFinished(sess.Kind, sess.Status)
	r.Stop(id)
	r.Logger.Info("session interrupted", zap.String("session_id", id.String()))
	return true, nil
}
