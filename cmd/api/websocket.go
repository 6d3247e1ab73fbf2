package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sandai/arena/src/app/sessions"
	"github.com/sandai/arena/src/app/tournaments"
	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/shared"
	"github.com/sandai/arena/src/infra/realtime"
)

// handlePongSocket serves one player's game connection for kind.
func (s *Server) handlePongSocket(kind game.Kind) http.HandlerFunc {
	connect := s.cfg.Protocol.ConnectRemote
	if kind == game.KindLocal {
		connect = s.cfg.Protocol.ConnectLocal
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id := shared.SessionID(mux.Vars(r)["id"])
		who := identityFromContext(r.Context())
		logger := s.cfg.Logger.With(
			zap.String("session_id", id.String()),
			zap.String("player_id", who.ID.String()),
			zap.String("request_id", correlationIDFromContext(r.Context())),
		)

		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		conn := realtime.NewConn(ws)
		ctx := r.Context()

		client, err := connect(ctx, id, who.ID, conn)
		if client == nil {
			code := sessions.CloseCode(err)
			if code == sessions.CloseInternalError {
				logger.Error("game connection failed", zap.Error(err))
			} else {
				logger.Info("game connection refused", zap.Error(err))
			}
			_ = conn.Close(code, "connection refused")
			return
		}
		if err != nil {
			logger.Error("game connection failed", zap.Error(err))
			s.leaveGame(ctx, client, logger)
			_ = conn.Close(sessions.CloseInternalError, "internal error")
			return
		}

		err = conn.ReadLoop(ctx, func(raw []byte) {
			if err := client.Receive(ctx, raw); err != nil {
				logger.Warn("failed to apply input", zap.Error(err))
			}
		})
		if err != nil {
			logger.Debug("game connection dropped", zap.Error(err))
		}
		s.leaveGame(ctx, client, logger)
		_ = conn.Close(websocket.CloseNormalClosure, "")
	}
}

func (s *Server) leaveGame(ctx context.Context, client *sessions.Client, logger *zap.Logger) {
	if err := client.Disconnect(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, shared.ErrNotFound) {
		logger.Warn("failed to settle disconnect", zap.Error(err))
	}
}

// handleNotificationSocket subscribes the caller to their personal
// notification group and ingests readiness acknowledgments.
func (s *Server) handleNotificationSocket(w http.ResponseWriter, r *http.Request) {
	who := identityFromContext(r.Context())
	logger := s.cfg.Logger.With(zap.String("player_id", who.ID.String()))

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := realtime.NewConn(ws)
	group := realtime.UserGroup(who.ID)
	s.cfg.Hub.Join(group, conn)
	defer s.cfg.Hub.Leave(group, conn)

	ctx := r.Context()
	err = conn.ReadLoop(ctx, func(raw []byte) {
		ack, err := tournaments.DecodePingResponse(raw)
		if err != nil {
			return
		}
		if err := s.cfg.Tournaments.Barrier.Acknowledge(ctx, ack.PingID, who.ID); err != nil {
			logger.Warn("failed to record readiness", zap.String("tournament_id", ack.PingID.String()), zap.Error(err))
		}
	})
	if err != nil {
		logger.Debug("notification connection dropped", zap.Error(err))
	}
	_ = conn.Close(websocket.CloseNormalClosure, "")
}
