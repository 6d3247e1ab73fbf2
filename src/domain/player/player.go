package player

import (
	"time"

	"github.com/sandai/arena/src/domain/shared"
)

// GuestID identifies the synthetic opponent of local sessions.
const GuestID shared.PlayerID = "guest"

// GuestNickname is the display name shared by every local-session guest.
const GuestNickname = "Guest"

// Stats are derived from completed sessions.
type Stats struct {
	MatchesPlayed int
	MatchesWon    int
}

// WinRate returns the share of matches won, zero before the first match.
func (s Stats) WinRate() float64 {
	if s.MatchesPlayed == 0 {
		return 0
	}
	return float64(s.MatchesWon) / float64(s.MatchesPlayed)
}

// Player is the aggregate root for a participant's display identity and record.
type Player struct {
	ID        shared.PlayerID
	Nickname  string
	IsGuest   bool
	Stats     Stats
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPlayer(id shared.PlayerID, nickname string, now time.Time) (*Player, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if nickname == "" {
		return nil, ErrNicknameRequired
	}
	return &Player{
		ID:        id,
		Nickname:  nickname,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewGuest builds the shared guest player.
func NewGuest(now time.Time) *Player {
	return &Player{
		ID:        GuestID,
		Nickname:  GuestNickname,
		IsGuest:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Rename updates the nickname when the identity provider reports a new one.
func (p *Player) Rename(nickname string, now time.Time) bool {
	if nickname == "" || nickname == p.Nickname {
		return false
	}
	p.Nickname = nickname
	p.UpdatedAt = now
	return true
}

// SetStats replaces the derived statistics.
func (p *Player) SetStats(stats Stats, now time.Time) error {
	if stats.MatchesWon > stats.MatchesPlayed || stats.MatchesWon < 0 {
		return ErrInvalidStats
	}
	p.Stats = stats
	p.UpdatedAt = now
	return nil
}
