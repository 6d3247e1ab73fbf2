package sessions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/shared"
)

// Close codes sent when a connection is refused.
const (
	CloseInternalError = 1011
	CloseConflict      = 4001
	CloseNotFound      = 4003
)

// CloseCode maps a refusal error to the close code sent to the peer.
func CloseCode(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return CloseNotFound
	case errors.Is(err, shared.ErrConflict), errors.Is(err, shared.ErrInvalidState):
		return CloseConflict
	default:
		return CloseInternalError
	}
}

// Protocol drives connection, input and disconnection for session peers.
type Protocol struct {
	Registry *Registry
	Logger   *zap.Logger
}

func NewProtocol(registry *Registry, logger *zap.Logger) *Protocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protocol{Registry: registry, Logger: logger}
}

// Client is a connected peer bound to its session and role.
type Client struct {
	proto       *Protocol
	kind        game.Kind
	sessionID   shared.SessionID
	participant shared.PlayerID
	role        game.Role
	peer        Peer
	logger      *zap.Logger
}

func (c *Client) SessionID() shared.SessionID { return c.sessionID }
func (c *Client) Role() game.Role             { return c.role }

// ConnectRemote joins a peer to a two-player network session.
func (p *Protocol) ConnectRemote(ctx context.Context, id shared.SessionID, participant shared.PlayerID, peer Peer) (*Client, error) {
	return p.connect(ctx, game.KindRemote, id, participant, peer)
}

// ConnectLocal joins a peer that drives both paddles against the guest.
func (p *Protocol) ConnectLocal(ctx context.Context, id shared.SessionID, participant shared.PlayerID, peer Peer) (*Client, error) {
	return p.connect(ctx, game.KindLocal, id, participant, peer)
}

func (p *Protocol) connect(ctx context.Context, kind game.Kind, id shared.SessionID, participant shared.PlayerID, peer Peer) (*Client, error) {
	logger := p.Logger.With(
		zap.String("session_id", id.String()),
		zap.String("participant", participant.String()),
		zap.String("kind", string(kind)),
	)
	reg := p.Registry

	ok, err := reg.Exists(ctx, id)
	if err != nil {
		_ = peer.Close(CloseInternalError, "internal error")
		return nil, err
	}
	if !ok {
		_ = peer.Close(CloseNotFound, "session not found")
		return nil, game.ErrSessionNotFound
	}
	sess, err := reg.Sessions.Get(ctx, id)
	if err != nil {
		_ = peer.Close(CloseCode(err), "session unavailable")
		return nil, err
	}
	if sess.Kind != kind {
		_ = peer.Close(CloseNotFound, "session not found")
		return nil, fmt.Errorf("%w: %s session", game.ErrSessionNotFound, sess.Kind)
	}
	if sess.IsTournament() && participant != sess.Player1 && participant != sess.Player2 {
		_ = peer.Close(CloseConflict, "not a player of this match")
		return nil, fmt.Errorf("%w: not scheduled for this match", shared.ErrConflict)
	}

	reg.Groups.Join(GroupName(id), peer)
	client := &Client{proto: p, kind: kind, sessionID: id, participant: participant, peer: peer, logger: logger}

	role, err := p.assign(ctx, kind, id, participant)
	if err != nil {
		reg.Groups.Leave(GroupName(id), peer)
		_ = peer.Close(CloseCode(err), err.Error())
		logger.Info("connection refused", zap.Error(err))
		return nil, err
	}
	client.role = role
	if err := peer.Send(ctx, newRoleAssignment(role)); err != nil {
		logger.Warn("failed to send role assignment", zap.Error(err))
	}

	state, err := reg.GetState(ctx, id)
	if err != nil {
		return client, err
	}
	began, sess, err := reg.Begin(ctx, id, state)
	if err != nil {
		return client, err
	}
	if began {
		if err := p.announce(ctx, sess); err != nil {
			logger.Warn("failed to broadcast init", zap.Error(err))
		}
		if err := reg.Start(ctx, id); err != nil {
			return client, err
		}
		logger.Info("session started")
	}
	return client, nil
}

// assign returns the role participant holds, adding it first if needed. A
// local session also seats the guest in the remaining role.
func (p *Protocol) assign(ctx context.Context, kind game.Kind, id shared.SessionID, participant shared.PlayerID) (game.Role, error) {
	reg := p.Registry
	state, err := reg.GetState(ctx, id)
	if err != nil {
		return "", err
	}
	role, ok := state.RoleOf(participant)
	if !ok {
		if role, err = reg.AddPlayer(ctx, id, participant); err != nil {
			return "", err
		}
	}
	if kind != game.KindLocal {
		return role, nil
	}

	guest, err := reg.Players.Guest(ctx)
	if err != nil {
		return "", err
	}
	if _, err := reg.AddPlayer(ctx, id, guest.ID); err != nil && !errors.Is(err, game.ErrAlreadyInSession) {
		return "", err
	}
	return role, nil
}

func (p *Protocol) announce(ctx context.Context, sess *game.Session) error {
	players := p.Registry.Players
	name1, err := players.Nickname(ctx, sess.Player1)
	if err != nil {
		return err
	}
	name2, err := players.Nickname(ctx, sess.Player2)
	if err != nil {
		return err
	}
	msg := Init{Type: TypeInit, Player1: name1, Player2: name2, Tournament: sess.IsTournament()}
	return p.Registry.Groups.Broadcast(ctx, GroupName(sess.ID), msg)
}

// Receive applies one client frame. Malformed frames are logged and dropped.
func (c *Client) Receive(ctx context.Context, raw []byte) error {
	in, err := DecodeInput(raw)
	if err != nil {
		c.logger.Warn("dropping client message", zap.Error(err))
		return nil
	}

	role := c.role
	if c.kind == game.KindLocal && in.Role != "" {
		role = in.Role
	}
	return c.proto.Registry.SetSlide(ctx, c.sessionID, role, in.Slide)
}

// Disconnect settles the session after the peer went away: an ongoing game
// is awarded to the remaining side, a game nobody joined is interrupted.
func (c *Client) Disconnect(ctx context.Context) error {
	reg := c.proto.Registry
	reg.Groups.Leave(GroupName(c.sessionID), c.peer)

	sess, err := reg.Sessions.Get(ctx, c.sessionID)
	if err != nil {
		return err
	}

	switch sess.Status {
	case game.StatusOngoing:
		winner := sess.Player1
		if winner == c.participant {
			winner = sess.Player2
		}
		msg := newDisconnection(c.nickname(ctx, c.participant), c.nickname(ctx, winner))
		done, err := reg.Complete(ctx, c.sessionID, winner, msg)
		if err != nil {
			return err
		}
		if done {
			c.logger.Info("session forfeited on disconnect", zap.String("winner", winner.String()))
		}
	case game.StatusWaiting:
		if _, err := reg.Interrupt(ctx, c.sessionID); err != nil {
			return err
		}
	}
	return nil
}

// nickname falls back to the id when the name cannot be resolved.
func (c *Client) nickname(ctx context.Context, id shared.PlayerID) string {
	name, err := c.proto.Registry.Players.Nickname(ctx, id)
	if err != nil || name == "" {
		c.logger.Warn("failed to resolve nickname", zap.String("player_id", id.String()), zap.Error(err))
		return id.String()
	}
	return name
}
