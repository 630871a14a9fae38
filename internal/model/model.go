package model

import "time"

// Color is one of the four pad colors. No ordering beyond membership.
type Color string

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
)

// Colors lists every valid color, used for uniform draws and validation.
var Colors = []Color{ColorRed, ColorBlue, ColorYellow, ColorGreen}

func ValidColor(c Color) bool {
	for _, v := range Colors {
		if v == c {
			return true
		}
	}
	return false
}

type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusCountdown RoomStatus = "countdown"
	StatusActive    RoomStatus = "active"
	StatusFinished  RoomStatus = "finished"
)

type GameMode string

const (
	ModeSimon     GameMode = "simon"
	ModeColorRace GameMode = "colorrace"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type PlayerStatus string

const (
	PlayerPlaying    PlayerStatus = "playing"
	PlayerEliminated PlayerStatus = "eliminated"
)

type RoundPhase string

const (
	PhaseShowingSequence RoundPhase = "showing_sequence"
	PhaseInput           RoundPhase = "input"
	PhaseRoundEnd        RoundPhase = "round_end"
)

type Player struct {
	ID               string    `json:"id"`
	DisplayName      string    `json:"displayName"`
	AvatarID         string    `json:"avatarId"`
	IsHost           bool      `json:"isHost"`
	Connected        bool      `json:"connected"`
	LiveConnectionID string    `json:"liveConnectionId,omitempty"`
	LastActivity     time.Time `json:"lastActivity"`
}

type PlayerRoundState struct {
	Status            PlayerStatus `json:"status"`
	CurrentInputIndex int          `json:"currentInputIndex"`
	EliminatedAtRound int          `json:"eliminatedAtRound,omitempty"`
}

// Submission is a player's attempted sequence for the current round.
// TimestampMS is server-received time, monotonic per room. Order is the
// arrival position within the round and breaks exact-timestamp ties.
type Submission struct {
	PlayerID    string  `json:"playerId"`
	Sequence    []Color `json:"sequence"`
	TimestampMS int64   `json:"timestampMs"`
	IsCorrect   bool    `json:"isCorrect"`
	Order       int     `json:"order"`
}

// RoundState is the simon-mode game state. Invariant: len(Sequence) == Round.
type RoundState struct {
	Phase          RoundPhase                   `json:"phase"`
	Sequence       []Color                      `json:"sequence"`
	Round          int                          `json:"round"`
	PlayerStates   map[string]*PlayerRoundState `json:"playerStates"`
	TimeoutMS      int                          `json:"timeoutMs"`
	TimeoutAt      *time.Time                   `json:"timeoutAt,omitempty"`
	TimerStartedAt *time.Time                   `json:"timerStartedAt,omitempty"`
	Scores         map[string]int               `json:"scores"`
	Submissions    map[string]*Submission       `json:"submissions"`
	RoundWinnerID  string                       `json:"roundWinnerId,omitempty"`
	Difficulty     Difficulty                   `json:"difficulty"`
}

// RaceState is the color-race game state: one prompt per round, first
// correct answer scores, first to WinningScore wins.
type RaceState struct {
	Phase         RoundPhase             `json:"phase"`
	Round         int                    `json:"round"`
	TargetColor   Color                  `json:"targetColor"`
	DisplayColor  Color                  `json:"displayColor"`
	TimeoutMS     int                    `json:"timeoutMs"`
	TimeoutAt     *time.Time             `json:"timeoutAt,omitempty"`
	Scores        map[string]int         `json:"scores"`
	Submissions   map[string]*Submission `json:"submissions"`
	RoundWinnerID string                 `json:"roundWinnerId,omitempty"`
	WinningScore  int                    `json:"winningScore"`
}

type Room struct {
	Code       string      `json:"code"`
	Players    []*Player   `json:"players"`
	Status     RoomStatus  `json:"status"`
	GameMode   GameMode    `json:"gameMode"`
	Difficulty Difficulty  `json:"difficulty"`
	CreatedAt  time.Time   `json:"createdAt"`
	GameState  *RoundState `json:"gameState,omitempty"`
	RaceState  *RaceState  `json:"raceState,omitempty"`
}

// Player returns the room member with the given id, or nil.
func (r *Room) Player(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Host returns the current host, or nil for an (invalid) hostless room.
func (r *Room) Host() *Player {
	for _, p := range r.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// JoinIndex returns the player's position in join order, or -1.
func (r *Room) JoinIndex(id string) int {
	for i, p := range r.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
