package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"partyseq/internal/model"
	"partyseq/internal/roomstore"
)

func newTestRegistry(t *testing.T) (*Registry, *roomstore.Memory) {
	t.Helper()
	mem := roomstore.NewMemory()
	queue := roomstore.NewWriteBehind(mem, time.Hour)
	t.Cleanup(queue.Close)
	reg := New(queue, Options{MaxPlayers: 4, MaxAge: 2 * time.Hour, DisconnectedGrace: 5 * time.Minute})
	return reg, mem
}

func TestCreateRoom(t *testing.T) {
	reg, _ := newTestRegistry(t)
	room, hostID := reg.CreateRoom(PlayerInfo{DisplayName: "Ana", AvatarID: "a1"}, "", "")

	if len(room.Code) != 4 {
		t.Fatalf("code = %q, want 4 chars", room.Code)
	}
	if room.Status != model.StatusWaiting {
		t.Fatalf("status = %q", room.Status)
	}
	if room.GameMode != model.ModeSimon || room.Difficulty != model.DifficultyMedium {
		t.Fatalf("defaults not applied: %+v", room)
	}
	if len(room.Players) != 1 || !room.Players[0].IsHost || room.Players[0].ID != hostID {
		t.Fatalf("host player wrong: %+v", room.Players)
	}
}

func TestJoinRoomOrderAndErrors(t *testing.T) {
	reg, _ := newTestRegistry(t)
	room, _ := reg.CreateRoom(PlayerInfo{DisplayName: "Host"}, model.ModeSimon, model.DifficultyEasy)

	if _, _, err := reg.JoinRoom("ZZZZ", PlayerInfo{DisplayName: "X"}); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join unknown code: %v", err)
	}

	var lastID string
	for i := 0; i < 3; i++ {
		snap, id, err := reg.JoinRoom(room.Code, PlayerInfo{DisplayName: "P"})
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		lastID = id
		if snap.Players[len(snap.Players)-1].ID != id {
			t.Fatal("joiner not appended in order")
		}
		if snap.Players[len(snap.Players)-1].IsHost {
			t.Fatal("joiner must not be host")
		}
	}
	_ = lastID

	if _, _, err := reg.JoinRoom(room.Code, PlayerInfo{DisplayName: "Fifth"}); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("join full room: %v", err)
	}

	_ = reg.Do(room.Code, func(r *model.Room) error {
		r.Status = model.StatusActive
		return nil
	})
	if _, _, err := reg.JoinRoom(room.Code, PlayerInfo{DisplayName: "Late"}); !errors.Is(err, ErrRoomNotJoinable) {
		t.Fatalf("join active room: %v", err)
	}
}

func TestRemovePlayerHostSuccession(t *testing.T) {
	reg, _ := newTestRegistry(t)
	room, hostID := reg.CreateRoom(PlayerInfo{DisplayName: "Host"}, "", "")
	_, secondID, _ := reg.JoinRoom(room.Code, PlayerInfo{DisplayName: "Second"})
	_, thirdID, _ := reg.JoinRoom(room.Code, PlayerInfo{DisplayName: "Third"})

	if !reg.RemovePlayer(room.Code, hostID) {
		t.Fatal("host removal failed")
	}
	snap, ok := reg.Get(room.Code)
	if !ok {
		t.Fatal("room vanished")
	}
	if host := snap.Host(); host == nil || host.ID != secondID {
		t.Fatalf("host = %+v, want %s (next in join order)", host, secondID)
	}
	if snap.Player(thirdID).IsHost {
		t.Fatal("third player must not be host")
	}
}

func TestRemovePlayerIdempotent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	room, _ := reg.CreateRoom(PlayerInfo{DisplayName: "Host"}, "", "")
	_, id, _ := reg.JoinRoom(room.Code, PlayerInfo{DisplayName: "P"})

	if !reg.RemovePlayer(room.Code, id) {
		t.Fatal("first removal failed")
	}
	if reg.RemovePlayer(room.Code, id) {
		t.Fatal("second removal reported true")
	}
	snap, _ := reg.Get(room.Code)
	if host := snap.Host(); host == nil {
		t.Fatal("double removal broke host assignment")
	}
}

func TestEmptyRoomDeleted(t *testing.T) {
	reg, mem := newTestRegistry(t)
	room, hostID := reg.CreateRoom(PlayerInfo{DisplayName: "Solo"}, "", "")

	if !reg.RemovePlayer(room.Code, hostID) {
		t.Fatal("removal failed")
	}
	if _, ok := reg.Get(room.Code); ok {
		t.Fatal("empty room still present")
	}
	if reg.Count() != 0 {
		t.Fatalf("Count = %d", reg.Count())
	}

	reg.queue.Flush(context.Background())
	rooms, _ := mem.Load(context.Background())
	if len(rooms) != 0 {
		t.Fatalf("empty room persisted: %v", rooms)
	}
}

func TestDoPersistsMutations(t *testing.T) {
	reg, mem := newTestRegistry(t)
	room, _ := reg.CreateRoom(PlayerInfo{DisplayName: "Host"}, "", "")

	err := reg.Do(room.Code, func(r *model.Room) error {
		r.Status = model.StatusCountdown
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	reg.queue.Flush(context.Background())

	rooms, _ := mem.Load(context.Background())
	if len(rooms) != 1 || rooms[0].Status != model.StatusCountdown {
		t.Fatalf("mutation not persisted: %+v", rooms)
	}
}

func TestDoErrorSkipsPersistence(t *testing.T) {
	reg, mem := newTestRegistry(t)
	room, _ := reg.CreateRoom(PlayerInfo{DisplayName: "Host"}, "", "")
	reg.queue.Flush(context.Background())

	wantErr := errors.New("nope")
	err := reg.Do(room.Code, func(r *model.Room) error {
		r.Status = model.StatusFinished
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Do error = %v", err)
	}
	reg.queue.Flush(context.Background())
	rooms, _ := mem.Load(context.Background())
	if rooms[0].Status == model.StatusFinished {
		t.Fatal("failed mutation persisted")
	}
}

func TestRestoreMarksPlayersDisconnected(t *testing.T) {
	mem := roomstore.NewMemory()
	_ = mem.Save(context.Background(), &model.Room{
		Code:      "QQQQ",
		Status:    model.StatusWaiting,
		CreatedAt: time.Now(),
		Players: []*model.Player{
			{ID: "p1", IsHost: true, Connected: true, LiveConnectionID: "conn-1"},
		},
	})
	queue := roomstore.NewWriteBehind(mem, time.Hour)
	defer queue.Close()
	reg := New(queue, Options{})

	if err := reg.Restore(context.Background(), mem); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	snap, ok := reg.Get("QQQQ")
	if !ok {
		t.Fatal("restored room missing")
	}
	p := snap.Player("p1")
	if p.Connected || p.LiveConnectionID != "" {
		t.Fatalf("restored player still connected: %+v", p)
	}
}

func TestRestoreResetsInterruptedGame(t *testing.T) {
	mem := roomstore.NewMemory()
	_ = mem.Save(context.Background(), &model.Room{
		Code:      "QQQQ",
		Status:    model.StatusActive,
		CreatedAt: time.Now(),
		Players: []*model.Player{
			{ID: "p1", IsHost: true},
			{ID: "p2"},
		},
		GameState: &model.RoundState{Round: 3, Phase: model.PhaseInput},
	})
	queue := roomstore.NewWriteBehind(mem, time.Hour)
	defer queue.Close()
	reg := New(queue, Options{})

	if err := reg.Restore(context.Background(), mem); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	snap, _ := reg.Get("QQQQ")
	if snap.Status != model.StatusWaiting || snap.GameState != nil {
		t.Fatalf("interrupted game not reset: status=%q gameState=%v", snap.Status, snap.GameState)
	}
}
