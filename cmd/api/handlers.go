package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/sandai/arena/src/app/sessions"
	"github.com/sandai/arena/src/app/tournaments"
	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/shared"
	"github.com/sandai/arena/src/domain/tournament"
)

type CreateSessionRequest struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

type SessionResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name,omitempty"`
	Kind         string      `json:"kind"`
	Status       string      `json:"status"`
	Player1      string      `json:"player1,omitempty"`
	Player2      string      `json:"player2,omitempty"`
	RoundsNeeded int         `json:"rounds_needed"`
	RoundNumber  int         `json:"round_number,omitempty"`
	TournamentID string      `json:"tournament_id,omitempty"`
	Winner       string      `json:"winner,omitempty"`
	StartTime    *time.Time  `json:"start_time,omitempty"`
	EndTime      *time.Time  `json:"end_time,omitempty"`
	State        *game.State `json:"state,omitempty"`
}

func newSessionResponse(s *game.Session, state *game.State) SessionResponse {
	return SessionResponse{
		ID:           string(s.ID),
		Name:         s.Name,
		Kind:         string(s.Kind),
		Status:       string(s.Status),
		Player1:      string(s.Player1),
		Player2:      string(s.Player2),
		RoundsNeeded: s.RoundsNeeded,
		RoundNumber:  s.RoundNumber,
		TournamentID: string(s.TournamentID),
		Winner:       string(s.Winner),
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		State:        state,
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	kind := game.Kind(req.Kind)
	if kind != game.KindLocal && kind != game.KindRemote {
		s.writeServiceError(w, fmt.Errorf("%w: kind must be local or remote", errValidation))
		return
	}
	sess, err := s.cfg.Registry.NewGame(r.Context(), sessions.NewGameCommand{
		Kind:         kind,
		RoundsNeeded: s.cfg.RoundsNeeded,
		CreatedBy:    identityFromContext(r.Context()).ID,
		Name:         req.Name,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newSessionResponse(sess, nil))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := shared.SessionID(mux.Vars(r)["id"])
	sess, err := s.cfg.Registry.Sessions.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	var state *game.State
	if !sess.IsTerminal() {
		if st, err := s.cfg.Registry.GetState(r.Context(), id); err == nil {
			state = st
		} else if !errors.Is(err, shared.ErrNotFound) {
			s.writeServiceError(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, newSessionResponse(sess, state))
}

type CreateTournamentRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MaxPlayers  int       `json:"max_players"`
	StartTime   time.Time `json:"start_time"`
}

type TournamentResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CreatedBy    string    `json:"created_by"`
	MaxPlayers   int       `json:"max_players"`
	Participants []string  `json:"participants"`
	ByePlayer    string    `json:"bye_player,omitempty"`
	CurrentRound int       `json:"current_round"`
	Status       string    `json:"status"`
	Winner       string    `json:"winner,omitempty"`
	StartTime    time.Time `json:"start_time"`
}

func newTournamentResponse(t *tournament.Tournament) TournamentResponse {
	participants := make([]string, len(t.Participants))
	for i, p := range t.Participants {
		participants[i] = string(p)
	}
	return TournamentResponse{
		ID:           string(t.ID),
		Name:         t.Name,
		Description:  t.Description,
		CreatedBy:    string(t.CreatedBy),
		MaxPlayers:   t.MaxPlayers,
		Participants: participants,
		ByePlayer:    string(t.ByePlayer),
		CurrentRound: t.CurrentRound,
		Status:       string(t.Status),
		Winner:       string(t.Winner),
		StartTime:    t.StartTime,
	}
}

func (req CreateTournamentRequest) validate() error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return fmt.Errorf("%w: name is required", errValidation)
	case req.MaxPlayers < tournament.MinPlayers:
		return fmt.Errorf("%w: max_players must be at least %d", errValidation, tournament.MinPlayers)
	case req.StartTime.IsZero():
		return fmt.Errorf("%w: start_time is required", errValidation)
	}
	return nil
}

func (s *Server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req CreateTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeServiceError(w, err)
		return
	}
	t, err := s.cfg.Tournaments.Create(r.Context(), tournaments.CreateCommand{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   identityFromContext(r.Context()).ID,
		MaxPlayers:  req.MaxPlayers,
		StartTime:   req.StartTime,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newTournamentResponse(t))
}

func (s *Server) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	list, err := s.cfg.Tournaments.List(r.Context(), limit, offset)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	out := make([]TournamentResponse, 0, len(list))
	for _, t := range list {
		out = append(out, newTournamentResponse(t))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	t, err := s.cfg.Tournaments.Get(r.Context(), shared.TournamentID(mux.Vars(r)["id"]))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newTournamentResponse(t))
}

func (s *Server) handleJoinTournament(w http.ResponseWriter, r *http.Request) {
	t, err := s.cfg.Tournaments.Join(r.Context(), shared.TournamentID(mux.Vars(r)["id"]), identityFromContext(r.Context()).ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newTournamentResponse(t))
}

func (s *Server) handleWithdrawTournament(w http.ResponseWriter, r *http.Request) {
	t, err := s.cfg.Tournaments.Withdraw(r.Context(), shared.TournamentID(mux.Vars(r)["id"]), identityFromContext(r.Context()).ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newTournamentResponse(t))
}

// handleStartTournament launches the tournament in the background; only its
// creator may start it ahead of the scheduled time.
func (s *Server) handleStartTournament(w http.ResponseWriter, r *http.Request) {
	id := shared.TournamentID(mux.Vars(r)["id"])
	t, err := s.cfg.Tournaments.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if t.CreatedBy != identityFromContext(r.Context()).ID {
		s.writeError(w, http.StatusForbidden, errors.New("only the creator can start the tournament"))
		return
	}
	if err := s.cfg.Tournaments.LaunchAsync(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, newTournamentResponse(t))
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	standings, err := s.cfg.Players.Ranking(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, standings)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errValidation, key)
	}
	return n, nil
}
