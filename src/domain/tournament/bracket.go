package tournament

import (
	"math/rand/v2"
	"slices"

	"github.com/sandai/arena/src/domain/shared"
)

// Pair is one scheduled match of a round.
type Pair struct {
	Player1 shared.PlayerID
	Player2 shared.PlayerID
}

// Draw is the outcome of pairing the players entering a round. Champion is
// set instead of Pairs when a single player remains.
type Draw struct {
	Pairs    []Pair
	Bye      shared.PlayerID
	Champion shared.PlayerID
}

// Finished reports whether the draw ends the bracket.
func (d Draw) Finished() bool {
	return len(d.Pairs) == 0
}

// DrawInitial shuffles the participants, sets one aside as bye when the count
// is odd and pairs the rest in shuffled order.
func DrawInitial(participants []shared.PlayerID, rng *rand.Rand) (Draw, error) {
	if len(participants) < MinPlayers {
		return Draw{}, ErrNotEnoughPlayers
	}
	players := slices.Clone(participants)
	rng.Shuffle(len(players), func(i, j int) { players[i], players[j] = players[j], players[i] })

	var draw Draw
	if len(players)%2 == 1 {
		i := rng.IntN(len(players))
		draw.Bye = players[i]
		players = slices.Delete(players, i, i+1)
	}
	draw.Pairs = pair(players)
	return draw, nil
}

// DrawNextRound builds the next round from the previous round's winners plus
// its bye. The new bye is never the previous one.
func DrawNextRound(winners []shared.PlayerID, prevBye shared.PlayerID, rng *rand.Rand) Draw {
	players := slices.Clone(winners)
	if prevBye != "" && !slices.Contains(players, prevBye) {
		players = append(players, prevBye)
	}

	switch len(players) {
	case 0:
		return Draw{}
	case 1:
		return Draw{Champion: players[0]}
	}

	var draw Draw
	if len(players)%2 == 1 {
		candidates := make([]int, 0, len(players))
		for i, p := range players {
			if p != prevBye {
				candidates = append(candidates, i)
			}
		}
		i := candidates[rng.IntN(len(candidates))]
		draw.Bye = players[i]
		players = slices.Delete(players, i, i+1)
	}
	rng.Shuffle(len(players), func(i, j int) { players[i], players[j] = players[j], players[i] })
	draw.Pairs = pair(players)
	return draw
}

func pair(players []shared.PlayerID) []Pair {
	pairs := make([]Pair, 0, len(players)/2)
	for i := 0; i+1 < len(players); i += 2 {
		pairs = append(pairs, Pair{Player1: players[i], Player2: players[i+1]})
	}
	return pairs
}
