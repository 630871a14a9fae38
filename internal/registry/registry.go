// Package registry is the in-memory authority over active rooms. Every
// mutation of a room happens under that room's exclusive lock via Do, and
// every successful mutation enqueues a wholesale snapshot on the
// write-behind persistence queue. Rooms in different codes never contend.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"partyseq/internal/model"
	"partyseq/internal/roomstore"
)

// Client-facing failures carry the exact message delivered on the wire.
var (
	ErrRoomNotFound    = errors.New("Room not found")
	ErrRoomNotJoinable = errors.New("Game already in progress")
	ErrRoomFull        = errors.New("Room is full")
)

type Options struct {
	MaxPlayers int
	// MaxAge is the hard lifetime of a room regardless of activity.
	MaxAge time.Duration
	// DisconnectedGrace deletes a room once every player has been
	// disconnected for at least this long.
	DisconnectedGrace time.Duration
}

type PlayerInfo struct {
	DisplayName string
	AvatarID    string
}

type entry struct {
	mu      sync.Mutex
	room    *model.Room
	deleted bool
}

type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*entry

	queue *roomstore.WriteBehind
	opts  Options
	now   func() time.Time
}

func New(queue *roomstore.WriteBehind, opts Options) *Registry {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 4
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 2 * time.Hour
	}
	if opts.DisconnectedGrace <= 0 {
		opts.DisconnectedGrace = 5 * time.Minute
	}
	return &Registry{
		rooms: make(map[string]*entry),
		queue: queue,
		opts:  opts,
		now:   time.Now,
	}
}

// Restore seeds the registry from persisted snapshots at startup. Sockets
// did not survive the restart, so every player comes back disconnected and
// the supervisor/janitor take it from there.
func (r *Registry) Restore(ctx context.Context, store roomstore.Store) error {
	rooms, err := store.Load(ctx)
	if err != nil {
		return err
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range rooms {
		for _, p := range room.Players {
			p.Connected = false
			p.LiveConnectionID = ""
			p.LastActivity = now
		}
		// Round timers did not survive the restart; an interrupted game
		// cannot resume, so it goes back to the lobby.
		if room.Status == model.StatusCountdown || room.Status == model.StatusActive {
			room.Status = model.StatusWaiting
			room.GameState = nil
			room.RaceState = nil
		}
		r.rooms[room.Code] = &entry{room: room}
	}
	log.Info().Int("rooms", len(rooms)).Msg("registry restored")
	return nil
}

// CreateRoom generates a collision-free code and creates a waiting room
// with the caller as its host.
func (r *Registry) CreateRoom(info PlayerInfo, mode model.GameMode, difficulty model.Difficulty) (*model.Room, string) {
	if mode == "" {
		mode = model.ModeSimon
	}
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}
	host := &model.Player{
		ID:           model.NewID(),
		DisplayName:  info.DisplayName,
		AvatarID:     info.AvatarID,
		IsHost:       true,
		LastActivity: r.now(),
	}

	r.mu.Lock()
	code := randomCode()
	for {
		if _, taken := r.rooms[code]; !taken {
			break
		}
		code = randomCode()
	}
	room := &model.Room{
		Code:       code,
		Players:    []*model.Player{host},
		Status:     model.StatusWaiting,
		GameMode:   mode,
		Difficulty: difficulty,
		CreatedAt:  r.now(),
	}
	r.rooms[code] = &entry{room: room}
	r.mu.Unlock()

	r.queue.Enqueue(room)
	log.Info().Str("code", code).Str("host", host.ID).Str("mode", string(mode)).Msg("room created")
	return room.Clone(), host.ID
}

// JoinRoom appends a non-host player; join order fixes host succession.
func (r *Registry) JoinRoom(code string, info PlayerInfo) (*model.Room, string, error) {
	var (
		snapshot *model.Room
		playerID string
	)
	err := r.Do(code, func(room *model.Room) error {
		if room.Status != model.StatusWaiting {
			return ErrRoomNotJoinable
		}
		if len(room.Players) >= r.opts.MaxPlayers {
			return ErrRoomFull
		}
		p := &model.Player{
			ID:           model.NewID(),
			DisplayName:  info.DisplayName,
			AvatarID:     info.AvatarID,
			LastActivity: r.now(),
		}
		room.Players = append(room.Players, p)
		playerID = p.ID
		snapshot = room.Clone()
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	log.Info().Str("code", code).Str("player", playerID).Msg("player joined")
	return snapshot, playerID, nil
}

// RemovePlayer removes the player, promoting the next joiner if the host
// left and deleting the room the moment it empties. Removing an absent
// player is a no-op returning false.
func (r *Registry) RemovePlayer(code, playerID string) bool {
	removed := false
	err := r.Do(code, func(room *model.Room) error {
		idx := room.JoinIndex(playerID)
		if idx < 0 {
			return nil
		}
		wasHost := room.Players[idx].IsHost
		room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
		removed = true
		if len(room.Players) == 0 {
			r.deleteRoom(code)
			return nil
		}
		if wasHost {
			room.Players[0].IsHost = true
		}
		return nil
	})
	if err != nil {
		return false
	}
	if removed {
		log.Info().Str("code", code).Str("player", playerID).Msg("player removed")
	}
	return removed
}

// Do runs fn with exclusive access to the room and persists the result.
// Returning an error from fn skips persistence.
func (r *Registry) Do(code string, fn func(room *model.Room) error) error {
	r.mu.RLock()
	e, ok := r.rooms[code]
	r.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return ErrRoomNotFound
	}
	if err := fn(e.room); err != nil {
		return err
	}
	if e.deleted {
		// fn emptied the room; the delete is already queued.
		return nil
	}
	r.queue.Enqueue(e.room)
	return nil
}

// Get returns a snapshot of the room.
func (r *Registry) Get(code string) (*model.Room, bool) {
	var snapshot *model.Room
	err := r.Do(code, func(room *model.Room) error {
		snapshot = room.Clone()
		return nil
	})
	if err != nil {
		return nil, false
	}
	return snapshot, true
}

// Count reports how many rooms are live, for metrics.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// deleteRoom is called with the entry's lock held by the current mutation.
func (r *Registry) deleteRoom(code string) {
	r.mu.Lock()
	e, ok := r.rooms[code]
	if ok {
		e.deleted = true
		delete(r.rooms, code)
	}
	r.mu.Unlock()
	if ok {
		r.queue.EnqueueDelete(code)
		log.Info().Str("code", code).Msg("room deleted")
	}
}

// CleanupDeadRooms sweeps rooms past their max age and rooms whose players
// have all been gone longer than the disconnected grace window. Returns
// how many were removed.
func (r *Registry) CleanupDeadRooms() int {
	r.mu.RLock()
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	r.mu.RUnlock()

	now := r.now()
	removed := 0
	for _, code := range codes {
		_ = r.Do(code, func(room *model.Room) error {
			if now.Sub(room.CreatedAt) > r.opts.MaxAge {
				r.deleteRoom(code)
				removed++
				return nil
			}
			if allDisconnectedPast(room, now, r.opts.DisconnectedGrace) {
				r.deleteRoom(code)
				removed++
			}
			return nil
		})
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("dead room sweep")
	}
	return removed
}

// allDisconnectedPast reports whether every player is disconnected and the
// oldest disconnect is older than grace.
func allDisconnectedPast(room *model.Room, now time.Time, grace time.Duration) bool {
	oldest := now
	for _, p := range room.Players {
		if p.Connected {
			return false
		}
		if p.LastActivity.Before(oldest) {
			oldest = p.LastActivity
		}
	}
	return len(room.Players) > 0 && now.Sub(oldest) > grace
}

// StartJanitor runs CleanupDeadRooms on the interval until ctx ends.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.CleanupDeadRooms()
			}
		}
	}()
}
