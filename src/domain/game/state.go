package game

import (
	"fmt"

	"github.com/sandai/arena/src/domain/shared"
)

// StateVersion is bumped whenever the persisted field set changes.
const StateVersion = 1

// Role is a player slot within a session.
type Role string

const (
	RolePlayer1 Role = "player1"
	RolePlayer2 Role = "player2"
)

// Roles lists both slots in assignment order.
var Roles = [2]Role{RolePlayer1, RolePlayer2}

// ParseRole validates a role name coming from a client.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePlayer1, RolePlayer2:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Opponent returns the other slot.
func (r Role) Opponent() Role {
	if r == RolePlayer1 {
		return RolePlayer2
	}
	return RolePlayer1
}

// Slide is the movement flag a paddle keeps between ticks.
type Slide string

const (
	SlideNone Slide = ""
	SlideUp   Slide = "up"
	SlideDown Slide = "down"
)

// ParseSlide accepts the canonical directions and the keyboard aliases
// browsers send.
func ParseSlide(s string) (Slide, error) {
	switch s {
	case "up", "w", "ArrowUp":
		return SlideUp, nil
	case "down", "s", "ArrowDown":
		return SlideDown, nil
	}
	return SlideNone, fmt.Errorf("unknown movement %q", s)
}

type Ball struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

type Paddle struct {
	X             float64         `json:"x"`
	Y             float64         `json:"y"`
	Slide         Slide           `json:"slide"`
	ParticipantID shared.PlayerID `json:"participant_id,omitempty"`
}

type Players struct {
	Player1 Paddle `json:"player1"`
	Player2 Paddle `json:"player2"`
}

type Scores struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// State is the store-resident snapshot of a running session.
type State struct {
	Version int     `json:"version"`
	Ball    Ball    `json:"ball"`
	Players Players `json:"players"`
	Scores  Scores  `json:"scores"`
}

// NewState returns the fixed opening layout: ball centred, paddles centred
// on their sides.
func NewState() *State {
	paddleY := (ScreenHeight - PaddleHeight) / 2
	return &State{
		Version: StateVersion,
		Ball:    Ball{X: ScreenWidth / 2, Y: ScreenHeight / 2, VX: ServeVX, VY: ServeVY},
		Players: Players{
			Player1: Paddle{X: PaddleInset, Y: paddleY},
			Player2: Paddle{X: ScreenWidth - PaddleInset, Y: paddleY},
		},
	}
}

// Paddle returns the paddle for role.
func (s *State) Paddle(role Role) *Paddle {
	if role == RolePlayer2 {
		return &s.Players.Player2
	}
	return &s.Players.Player1
}

// Score returns the score of role.
func (s *State) Score(role Role) int {
	if role == RolePlayer2 {
		return s.Scores.Player2
	}
	return s.Scores.Player1
}

// AddPoint increments the score of role and returns the new value.
func (s *State) AddPoint(role Role) int {
	if role == RolePlayer2 {
		s.Scores.Player2++
		return s.Scores.Player2
	}
	s.Scores.Player1++
	return s.Scores.Player1
}

// RoleOf returns the role held by participant.
func (s *State) RoleOf(participant shared.PlayerID) (Role, bool) {
	for _, role := range Roles {
		if p := s.Paddle(role); p.ParticipantID != "" && p.ParticipantID == participant {
			return role, true
		}
	}
	return "", false
}

// AddParticipant assigns the first unfilled role.
func (s *State) AddParticipant(participant shared.PlayerID) (Role, error) {
	if err := participant.Validate(); err != nil {
		return "", err
	}
	if _, ok := s.RoleOf(participant); ok {
		return "", ErrAlreadyInSession
	}
	for _, role := range Roles {
		if p := s.Paddle(role); p.ParticipantID == "" {
			p.ParticipantID = participant
			return role, nil
		}
	}
	return "", ErrSessionFull
}

// Participant resolves a role to the participant holding it.
func (s *State) Participant(role Role) (shared.PlayerID, error) {
	id := s.Paddle(role).ParticipantID
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrUnmappedRole, role)
	}
	return id, nil
}
