package registry

import (
	"testing"
	"time"

	"partyseq/internal/model"
	"partyseq/internal/roomstore"
)

func TestCleanupRemovesAgedRooms(t *testing.T) {
	mem := roomstore.NewMemory()
	queue := roomstore.NewWriteBehind(mem, time.Hour)
	defer queue.Close()
	reg := New(queue, Options{MaxAge: time.Hour, DisconnectedGrace: 5 * time.Minute})

	base := time.Now()
	reg.now = func() time.Time { return base }
	old, _ := reg.CreateRoom(PlayerInfo{DisplayName: "Old"}, "", "")
	fresh, _ := reg.CreateRoom(PlayerInfo{DisplayName: "Fresh"}, "", "")

	// Keep both rooms' players nominally connected so only age matters.
	for _, code := range []string{old.Code, fresh.Code} {
		_ = reg.Do(code, func(r *model.Room) error {
			r.Players[0].Connected = true
			return nil
		})
	}
	_ = reg.Do(old.Code, func(r *model.Room) error {
		r.CreatedAt = base.Add(-2 * time.Hour)
		return nil
	})

	if removed := reg.CleanupDeadRooms(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := reg.Get(old.Code); ok {
		t.Fatal("aged room survived sweep")
	}
	if _, ok := reg.Get(fresh.Code); !ok {
		t.Fatal("fresh room swept")
	}
}

func TestCleanupRemovesFullyDisconnectedRooms(t *testing.T) {
	mem := roomstore.NewMemory()
	queue := roomstore.NewWriteBehind(mem, time.Hour)
	defer queue.Close()
	reg := New(queue, Options{MaxAge: 24 * time.Hour, DisconnectedGrace: 5 * time.Minute})

	base := time.Now()
	reg.now = func() time.Time { return base }
	room, _ := reg.CreateRoom(PlayerInfo{DisplayName: "Host"}, "", "")
	_, _, _ = reg.JoinRoom(room.Code, PlayerInfo{DisplayName: "P2"})

	// Both players disconnected, the older one past grace.
	_ = reg.Do(room.Code, func(r *model.Room) error {
		r.Players[0].Connected = false
		r.Players[0].LastActivity = base.Add(-10 * time.Minute)
		r.Players[1].Connected = false
		r.Players[1].LastActivity = base.Add(-1 * time.Minute)
		return nil
	})

	if removed := reg.CleanupDeadRooms(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := reg.Get(room.Code); ok {
		t.Fatal("fully disconnected room survived sweep")
	}
}

func TestCleanupSparesPartiallyConnectedRooms(t *testing.T) {
	mem := roomstore.NewMemory()
	queue := roomstore.NewWriteBehind(mem, time.Hour)
	defer queue.Close()
	reg := New(queue, Options{MaxAge: 24 * time.Hour, DisconnectedGrace: 5 * time.Minute})

	base := time.Now()
	reg.now = func() time.Time { return base }
	room, _ := reg.CreateRoom(PlayerInfo{DisplayName: "Host"}, "", "")
	_, _, _ = reg.JoinRoom(room.Code, PlayerInfo{DisplayName: "P2"})

	_ = reg.Do(room.Code, func(r *model.Room) error {
		r.Players[0].Connected = true
		r.Players[1].Connected = false
		r.Players[1].LastActivity = base.Add(-30 * time.Minute)
		return nil
	})

	if removed := reg.CleanupDeadRooms(); removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}
