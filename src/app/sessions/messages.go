package sessions

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/shared"
)

// MessageType tags every frame exchanged on a session channel.
type MessageType string

const (
	TypeRoleAssignment MessageType = "role_assignment"
	TypeInit           MessageType = "init"
	TypeGameplay       MessageType = "gameplay"
	TypeEnding         MessageType = "ending"
	TypeDisconnection  MessageType = "disconnection"
)

// Action is the key transition carried by an input frame.
type Action string

const (
	ActionKeyDown Action = "keydown"
	ActionKeyUp   Action = "keyup"
)

type RoleAssignment struct {
	Type MessageType `json:"type"`
	Role game.Role   `json:"role"`
}

type Init struct {
	Type       MessageType `json:"type"`
	Player1    string      `json:"player1"`
	Player2    string      `json:"player2"`
	Tournament bool        `json:"tournament"`
}

type Gameplay struct {
	Type  MessageType `json:"type"`
	State game.State  `json:"state"`
}

type Ending struct {
	Type     MessageType     `json:"type"`
	State    string          `json:"state"`
	Score    game.Scores     `json:"score"`
	WinnerID shared.PlayerID `json:"winnerId"`
}

// Disconnection names both sides by nickname.
type Disconnection struct {
	Type         MessageType `json:"type"`
	Disconnected string      `json:"disconnected"`
	Winner       string      `json:"winner"`
}

func newRoleAssignment(role game.Role) RoleAssignment {
	return RoleAssignment{Type: TypeRoleAssignment, Role: role}
}

func newGameplay(state game.State) Gameplay {
	return Gameplay{Type: TypeGameplay, State: state}
}

func newEnding(scores game.Scores, winner shared.PlayerID) Ending {
	return Ending{Type: TypeEnding, State: "finished", Score: scores, WinnerID: winner}
}

func newDisconnection(disconnected, winner string) Disconnection {
	return Disconnection{Type: TypeDisconnection, Disconnected: disconnected, Winner: winner}
}

// Input is a decoded client frame.
type Input struct {
	Action Action
	Slide  game.Slide
	// Role is only honoured on local sessions where one peer drives both paddles.
	Role game.Role
}

var ErrMalformedMessage = errors.New("malformed client message")

type inputFrame struct {
	Type     MessageType `json:"type"`
	Action   Action      `json:"action"`
	Movement string      `json:"movement"`
	Role     string      `json:"role"`
}

// DecodeInput parses and validates a client frame.
func DecodeInput(raw []byte) (Input, error) {
	var f inputFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if f.Type != TypeGameplay {
		return Input{}, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, f.Type)
	}

	in := Input{Action: f.Action}
	switch f.Action {
	case ActionKeyDown:
		slide, err := game.ParseSlide(f.Movement)
		if err != nil {
			return Input{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		in.Slide = slide
	case ActionKeyUp:
		in.Slide = game.SlideNone
	default:
		return Input{}, fmt.Errorf("%w: unknown action %q", ErrMalformedMessage, f.Action)
	}

	if f.Role != "" {
		role, err := game.ParseRole(f.Role)
		if err != nil {
			return Input{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		in.Role = role
	}
	return in, nil
}
