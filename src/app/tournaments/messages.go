package tournaments

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sandai/arena/src/domain/shared"
)

// User-facing notices sent as system messages.
const (
	NoticeNotEnoughPlayers   = "The tournament didn't have enough players to start, sorry :/"
	NoticeDroppedBeforeStart = "Somebody disconnected before the start of the tournament, sorry :/"
	NoticeDroppedDuringPlay  = "Somebody disconnected during the tournament, sorry :/"
	NoticeBye                = "The tournament started with an odd number of players and you gotta wait, sorry :/"
)

// UpdateStartCountdown opens the countdown before a round; an empty update
// message means the match may be joined.
const (
	UpdateStartCountdown = "start_countdown"
	UpdateGo             = ""
)

// Ping asks a participant's client to acknowledge it is still there.
type Ping struct {
	Type   string              `json:"type"`
	PingID shared.TournamentID `json:"ping_id"`
}

func newPing(id shared.TournamentID) Ping {
	return Ping{Type: "tournament_ping", PingID: id}
}

// PingResponse is the client's acknowledgment of a Ping.
type PingResponse struct {
	Type   string              `json:"type"`
	PingID shared.TournamentID `json:"ping_id"`
}

var ErrNotPingResponse = errors.New("not a ping response")

// DecodePingResponse parses a notification channel frame. Frames of any
// other type return ErrNotPingResponse.
func DecodePingResponse(raw []byte) (PingResponse, error) {
	var r PingResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return PingResponse{}, fmt.Errorf("%w: %v", ErrNotPingResponse, err)
	}
	if r.Type != "ping_response" || r.PingID == "" {
		return PingResponse{}, ErrNotPingResponse
	}
	return r, nil
}

// Update tells a participant about their next match.
type Update struct {
	Type         string              `json:"type"`
	Message      string              `json:"message"`
	GameID       shared.SessionID    `json:"game_id"`
	OpponentName string              `json:"opponent_name"`
	TournamentID shared.TournamentID `json:"tourney_id"`
}

// SystemNotice is a one-off notification shown to a single user.
type SystemNotice struct {
	Type           string              `json:"type"`
	Notification   string              `json:"notification"`
	Message        string              `json:"message"`
	SenderID       shared.PlayerID     `json:"senderID"`
	SenderName     string              `json:"senderName"`
	RecipientID    shared.PlayerID     `json:"recipientID"`
	RequestID      shared.TournamentID `json:"requestID"`
	NotificationID int                 `json:"notificationID"`
}

func newSystemNotice(message string, to shared.PlayerID, name string, tid shared.TournamentID) SystemNotice {
	return SystemNotice{
		Type:           "notification",
		Notification:   "systemMessage",
		Message:        message,
		SenderID:       to,
		SenderName:     name,
		RecipientID:    to,
		RequestID:      tid,
		NotificationID: -1,
	}
}
