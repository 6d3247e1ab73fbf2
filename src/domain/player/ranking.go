package player

import (
	"cmp"
	"slices"

	"github.com/sandai/arena/src/domain/shared"
)

// Standing is one row of the ranking table.
type Standing struct {
	Rank          int             `json:"rank"`
	PlayerID      shared.PlayerID `json:"player_id"`
	Nickname      string          `json:"nickname"`
	MatchesPlayed int             `json:"matches_played"`
	MatchesWon    int             `json:"matches_won"`
}

// Rank orders players by wins, then matches played. Guests and players
// without a finished match are left out. Ties share a rank.
func Rank(players []*Player) []Standing {
	eligible := make([]*Player, 0, len(players))
	for _, p := range players {
		if p.IsGuest || p.Stats.MatchesPlayed == 0 {
			continue
		}
		eligible = append(eligible, p)
	}
	slices.SortStableFunc(eligible, func(a, b *Player) int {
		if c := cmp.Compare(b.Stats.MatchesWon, a.Stats.MatchesWon); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Stats.MatchesPlayed, a.Stats.MatchesPlayed); c != 0 {
			return c
		}
		return cmp.Compare(a.Nickname, b.Nickname)
	})

	out := make([]Standing, len(eligible))
	for i, p := range eligible {
		rank := i + 1
		if i > 0 && p.Stats == eligible[i-1].Stats {
			rank = out[i-1].Rank
		}
		out[i] = Standing{
			Rank:          rank,
			PlayerID:      p.ID,
			Nickname:      p.Nickname,
			MatchesPlayed: p.Stats.MatchesPlayed,
			MatchesWon:    p.Stats.MatchesWon,
		}
	}
	return out
}
