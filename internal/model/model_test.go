package model

import (
	"testing"
	"time"
)

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	room := &Room{
		Code:   "ABCD",
		Status: StatusActive,
		Players: []*Player{
			{ID: "p1", IsHost: true, Connected: true},
			{ID: "p2", Connected: true},
		},
		GameState: &RoundState{
			Phase:        PhaseInput,
			Sequence:     []Color{ColorRed, ColorBlue},
			Round:        2,
			PlayerStates: map[string]*PlayerRoundState{"p1": {Status: PlayerPlaying}},
			Scores:       map[string]int{"p1": 1},
			Submissions: map[string]*Submission{
				"p1": {PlayerID: "p1", Sequence: []Color{ColorRed}, TimestampMS: 10},
			},
			TimeoutAt: &now,
		},
	}

	cp := room.Clone()
	cp.Players[0].IsHost = false
	cp.GameState.Sequence[0] = ColorGreen
	cp.GameState.PlayerStates["p1"].Status = PlayerEliminated
	cp.GameState.Scores["p1"] = 99
	cp.GameState.Submissions["p1"].Sequence[0] = ColorYellow

	if !room.Players[0].IsHost {
		t.Fatal("clone shares player slice")
	}
	if room.GameState.Sequence[0] != ColorRed {
		t.Fatal("clone shares sequence")
	}
	if room.GameState.PlayerStates["p1"].Status != PlayerPlaying {
		t.Fatal("clone shares player states")
	}
	if room.GameState.Scores["p1"] != 1 {
		t.Fatal("clone shares scores")
	}
	if room.GameState.Submissions["p1"].Sequence[0] != ColorRed {
		t.Fatal("clone shares submission sequences")
	}
}

func TestRoomLookups(t *testing.T) {
	room := &Room{Players: []*Player{
		{ID: "a"},
		{ID: "b", IsHost: true},
	}}
	if got := room.Player("b"); got == nil || got.ID != "b" {
		t.Fatalf("Player(b) = %+v", got)
	}
	if got := room.Player("missing"); got != nil {
		t.Fatalf("Player(missing) = %+v, want nil", got)
	}
	if host := room.Host(); host == nil || host.ID != "b" {
		t.Fatalf("Host() = %+v", host)
	}
	if idx := room.JoinIndex("a"); idx != 0 {
		t.Fatalf("JoinIndex(a) = %d, want 0", idx)
	}
	if idx := room.JoinIndex("zzz"); idx != -1 {
		t.Fatalf("JoinIndex(zzz) = %d, want -1", idx)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 26 {
			t.Fatalf("unexpected ULID length: %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
