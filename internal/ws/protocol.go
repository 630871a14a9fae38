package ws

import (
	"partyseq/internal/model"
	"partyseq/internal/simon"
)

// Client intents share one envelope; Sequence is only meaningful for
// submit (one element in color-race mode).
type Intent struct {
	Type     string        `json:"type"`
	Code     string        `json:"code,omitempty"`
	PlayerID string        `json:"playerId,omitempty"`
	Sequence []model.Color `json:"sequence,omitempty"`
}

const (
	IntentJoinRoomSocket = "join_room_socket"
	IntentLeaveRoom      = "leave_room"
	IntentStartGame      = "start_game"
	IntentSubmit         = "submit"
	IntentRestartGame    = "restart_game"
)

type RoomState struct {
	Type string      `json:"type"` // "room_state"
	Room *model.Room `json:"room"`
}

type RoomStateUpdate struct {
	Type string      `json:"type"` // "room_state_update"
	Room *model.Room `json:"room"`
}

type PlayerJoined struct {
	Type   string        `json:"type"` // "player_joined"
	Player *model.Player `json:"player"`
}

type PlayerLeft struct {
	Type     string `json:"type"` // "player_left"
	PlayerID string `json:"playerId"`
}

type PlayerDisconnected struct {
	Type     string `json:"type"` // "player_disconnected"
	PlayerID string `json:"playerId"`
}

type PlayerReconnected struct {
	Type     string `json:"type"` // "player_reconnected"
	PlayerID string `json:"playerId"`
}

type Countdown struct {
	Type  string `json:"type"` // "countdown"
	Count int    `json:"count"`
}

type GameRestarted struct {
	Type string `json:"type"` // "game_restarted"
	Code string `json:"code"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// RoundStarted announces a new round. Sequence is set in simon mode;
// TargetColor/DisplayColor in color-race mode.
type RoundStarted struct {
	Type         string        `json:"type"` // "round_started"
	Round        int           `json:"round"`
	Sequence     []model.Color `json:"sequence,omitempty"`
	TargetColor  model.Color   `json:"targetColor,omitempty"`
	DisplayColor model.Color   `json:"displayColor,omitempty"`
	TimeoutMS    int           `json:"timeoutMs"`
	Phase        string        `json:"phase"`
}

type InputPhase struct {
	Type      string `json:"type"` // "input_phase"
	Round     int    `json:"round"`
	TimeoutAt int64  `json:"timeoutAt"` // unix ms
}

type RoundResult struct {
	Type         string              `json:"type"` // "round_result"
	Round        int                 `json:"round"`
	WinnerID     string              `json:"winnerId,omitempty"`
	Eliminations []simon.Elimination `json:"eliminations"`
	Scores       map[string]int      `json:"scores"`
}

type GameOver struct {
	Type     string         `json:"type"` // "game_over"
	WinnerID string         `json:"winnerId,omitempty"`
	Scores   map[string]int `json:"scores"`
}

// Exact wire strings for the client-facing error taxonomy. "Room is
// full" and "Game already in progress" are surfaced through the registry
// sentinels; the gateway never emits them directly.
const (
	errRoomNotFound    = "Room not found"
	errPlayerNotInRoom = "Player not in room"
	errOnlyHostStarts  = "Only host can start the game"
	errAlreadyStarted  = "Game already started"
)
