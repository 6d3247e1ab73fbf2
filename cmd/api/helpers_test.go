package main

import "github.com/sandai/arena/src/domain/shared"

func sessionID(id string) shared.SessionID { return shared.SessionID(id) }

func tournamentID(id string) shared.TournamentID { return shared.TournamentID(id) }

func participantIDs(ids ...string) []shared.PlayerID {
	out := make([]shared.PlayerID, len(ids))
	for i, id := range ids {
		out[i] = shared.PlayerID(id)
	}
	return out
}
