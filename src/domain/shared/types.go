package shared

import (
	"errors"
	"strings"
)

// ID types keep domain entities distinct while remaining simple strings at runtime.
type (
	PlayerID     string
	SessionID    string
	TournamentID string
)

// Validate ensures IDs are not blank and normalized.
func (id PlayerID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return errors.New("player id is required")
	}
	return nil
}

func (id SessionID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return errors.New("session id is required")
	}
	return nil
}

func (id TournamentID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return errors.New("tournament id is required")
	}
	return nil
}

func (id PlayerID) String() string     { return string(id) }
func (id SessionID) String() string    { return string(id) }
func (id TournamentID) String() string { return string(id) }
