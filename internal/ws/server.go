// Package ws is the session gateway: it binds live websocket connections
// to (room, player) pairs, forwards client intents into the registry and
// round engines, and fans resulting state out to every socket bound to the
// room. All room mutations go through registry.Do, so concurrent intents
// and timer callbacks for one room never interleave.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"partyseq/internal/metrics"
	"partyseq/internal/model"
	"partyseq/internal/registry"
	"partyseq/internal/sched"
)

const writeWait = 10 * time.Second

type Config struct {
	// DisconnectBuffer is how long a drop can last before the room is
	// told about it; DisconnectGrace is the further window before the
	// player is removed for good.
	DisconnectBuffer time.Duration
	DisconnectGrace  time.Duration

	// InterRoundDelay separates round_result from the next
	// round_started.
	InterRoundDelay time.Duration
}

func (c *Config) defaults() {
	if c.DisconnectBuffer <= 0 {
		c.DisconnectBuffer = 5 * time.Second
	}
	if c.DisconnectGrace <= 0 {
		c.DisconnectGrace = 60 * time.Second
	}
	if c.InterRoundDelay <= 0 {
		c.InterRoundDelay = 2 * time.Second
	}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	// Binding, owned by the gateway mutex.
	code     string
	playerID string
}

type Gateway struct {
	reg     *registry.Registry
	timers  *sched.Scheduler
	metrics *metrics.Metrics
	cfg     Config

	upgrader websocket.Upgrader

	mu       sync.Mutex
	byRoom   map[string]map[*client]bool
	byPlayer map[string]*client // code+"/"+playerID -> client

	stampMu sync.Mutex
	stamps  map[string]int64 // per-room monotonic ms clock
}

func NewGateway(reg *registry.Registry, timers *sched.Scheduler, m *metrics.Metrics, cfg Config) *Gateway {
	cfg.defaults()
	return &Gateway{
		reg:      reg,
		timers:   timers,
		metrics:  m,
		cfg:      cfg,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		byRoom:   map[string]map[*client]bool{},
		byPlayer: map[string]*client{},
		stamps:   map[string]int64{},
	}
}

func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.New().String(), conn: conn, send: make(chan []byte, 16)}

	go g.writeLoop(c)
	g.readLoop(c)
}

func (g *Gateway) readLoop(c *client) {
	defer func() {
		g.dropConnection(c)
		_ = c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var intent Intent
		if err := json.Unmarshal(msg, &intent); err != nil {
			continue
		}
		g.metrics.IntentsReceived.WithLabelValues(intent.Type).Inc()

		switch intent.Type {
		case IntentJoinRoomSocket:
			g.handleJoinSocket(c, intent)
		case IntentLeaveRoom:
			g.handleLeave(c, intent)
		case IntentStartGame:
			g.handleStart(c, intent)
		case IntentSubmit:
			g.handleSubmit(c, intent)
		case IntentRestartGame:
			g.handleRestart(c, intent)
		default:
			log.Debug().Str("type", intent.Type).Msg("unknown intent")
		}
	}
}

func (g *Gateway) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// handleJoinSocket binds the connection after validating membership. A
// bind for a player the supervisor was counting down doubles as a
// reconnect: pending timers are cancelled and the full snapshot replayed.
func (g *Gateway) handleJoinSocket(c *client, intent Intent) {
	var (
		snapshot     *model.Room
		player       *model.Player
		wasConnected bool
	)
	err := g.reg.Do(intent.Code, func(room *model.Room) error {
		p := room.Player(intent.PlayerID)
		if p == nil {
			return errString(errPlayerNotInRoom)
		}
		wasConnected = p.Connected
		p.Connected = true
		p.LiveConnectionID = c.id
		p.LastActivity = time.Now()
		cp := *p
		player = &cp
		snapshot = room.Clone()
		return nil
	})
	if errors.Is(err, registry.ErrRoomNotFound) {
		g.sendError(c, errRoomNotFound)
		return
	}
	if err != nil {
		g.sendError(c, err.Error())
		return
	}

	cancelled := g.timers.CancelAll(playerKey(intent.Code, intent.PlayerID)) > 0

	g.mu.Lock()
	// A second socket for the same player supersedes the first.
	if old := g.byPlayer[playerKey(intent.Code, intent.PlayerID)]; old != nil && old != c {
		g.unbindLocked(old)
		safeClose(old.send)
		if old.conn != nil {
			_ = old.conn.Close()
		}
		g.metrics.BoundConnections.Dec()
	}
	c.code = intent.Code
	c.playerID = intent.PlayerID
	if g.byRoom[c.code] == nil {
		g.byRoom[c.code] = map[*client]bool{}
	}
	g.byRoom[c.code][c] = true
	g.byPlayer[playerKey(c.code, c.playerID)] = c
	g.mu.Unlock()
	g.metrics.BoundConnections.Inc()

	g.sendJSON(c, RoomState{Type: "room_state", Room: snapshot})
	g.broadcastExcept(c.code, c, RoomStateUpdate{Type: "room_state_update", Room: snapshot})
	switch {
	case wasConnected:
		// Refresh or second tab before the buffer elapsed; nothing to
		// announce, the room never saw a disconnect.
	case cancelled:
		log.Info().Str("code", c.code).Str("player", c.playerID).Msg("player reconnected")
		g.broadcastExcept(c.code, c, PlayerReconnected{Type: "player_reconnected", PlayerID: c.playerID})
	default:
		g.broadcastExcept(c.code, c, PlayerJoined{Type: "player_joined", Player: player})
	}
}

// handleLeave is an explicit, immediate departure: no grace period.
func (g *Gateway) handleLeave(c *client, intent Intent) {
	if !g.bound(c, intent) {
		g.sendError(c, errPlayerNotInRoom)
		return
	}
	g.unbind(c)
	g.removePlayerAndResolve(intent.Code, intent.PlayerID)
}

func (g *Gateway) handleStart(c *client, intent Intent) {
	if !g.bound(c, intent) {
		g.sendError(c, errPlayerNotInRoom)
		return
	}
	err := g.reg.Do(intent.Code, func(room *model.Room) error {
		host := room.Host()
		if host == nil || host.ID != intent.PlayerID {
			return errString(errOnlyHostStarts)
		}
		if room.Status != model.StatusWaiting {
			return errString(errAlreadyStarted)
		}
		room.Status = model.StatusCountdown
		g.broadcast(room.Code, RoomStateUpdate{Type: "room_state_update", Room: room.Clone()})
		g.broadcast(room.Code, Countdown{Type: "countdown", Count: 3})
		return nil
	})
	if err != nil {
		g.sendError(c, err.Error())
		return
	}
	g.scheduleCountdown(intent.Code, 2)
}

// scheduleCountdown emits the remaining ticks on a one-second cadence; the
// zero tick and the first round start share one critical section.
func (g *Gateway) scheduleCountdown(code string, next int) {
	g.timers.After(roomKey(code), time.Second, func() {
		err := g.reg.Do(code, func(room *model.Room) error {
			if room.Status != model.StatusCountdown {
				return errString("countdown superseded")
			}
			if next > 0 {
				g.broadcast(code, Countdown{Type: "countdown", Count: next})
				return nil
			}
			g.broadcast(code, Countdown{Type: "countdown", Count: 0})
			g.beginGame(room)
			return nil
		})
		if err == nil && next > 0 {
			g.scheduleCountdown(code, next-1)
		}
	})
}

func (g *Gateway) handleRestart(c *client, intent Intent) {
	if !g.bound(c, intent) {
		g.sendError(c, errPlayerNotInRoom)
		return
	}
	err := g.reg.Do(intent.Code, func(room *model.Room) error {
		host := room.Host()
		if host == nil || host.ID != intent.PlayerID {
			return errString(errOnlyHostStarts)
		}
		g.timers.CancelAll(roomKey(room.Code))
		room.Status = model.StatusWaiting
		room.GameState = nil
		room.RaceState = nil
		g.broadcast(room.Code, GameRestarted{Type: "game_restarted", Code: room.Code})
		g.broadcast(room.Code, RoomStateUpdate{Type: "room_state_update", Room: room.Clone()})
		log.Info().Str("code", room.Code).Msg("game restarted")
		return nil
	})
	if err != nil {
		g.sendError(c, err.Error())
	}
}

// dropConnection runs when a socket dies for any reason. Bound players get
// the two-phase disconnect treatment instead of immediate removal.
func (g *Gateway) dropConnection(c *client) {
	g.mu.Lock()
	code, playerID := c.code, c.playerID
	current := code != "" && g.byPlayer[playerKey(code, playerID)] == c
	g.unbindLocked(c)
	g.mu.Unlock()
	safeClose(c.send)

	if !current {
		return
	}
	g.metrics.BoundConnections.Dec()
	g.superviseDisconnect(code, playerID, c.id)
}

// bound checks the intent against the connection's live binding, keeping
// clients from acting on rooms they never joined.
func (g *Gateway) bound(c *client, intent Intent) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return c.code == intent.Code && c.playerID == intent.PlayerID && c.code != ""
}

func (g *Gateway) unbind(c *client) {
	g.mu.Lock()
	g.unbindLocked(c)
	g.mu.Unlock()
	g.metrics.BoundConnections.Dec()
}

func (g *Gateway) unbindLocked(c *client) {
	if c.code == "" {
		return
	}
	if set := g.byRoom[c.code]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(g.byRoom, c.code)
		}
	}
	if g.byPlayer[playerKey(c.code, c.playerID)] == c {
		delete(g.byPlayer, playerKey(c.code, c.playerID))
	}
	c.code, c.playerID = "", ""
}

// removePlayerAndResolve permanently removes a player and settles any
// consequences for a game in flight.
func (g *Gateway) removePlayerAndResolve(code, playerID string) {
	g.timers.CancelAll(playerKey(code, playerID))

	if !g.reg.RemovePlayer(code, playerID) {
		return
	}
	g.broadcast(code, PlayerLeft{Type: "player_left", PlayerID: playerID})

	// The room may already be gone (last player out); otherwise check
	// whether the departure decides a running game.
	err := g.reg.Do(code, func(room *model.Room) error {
		g.broadcast(code, RoomStateUpdate{Type: "room_state_update", Room: room.Clone()})
		if room.Status == model.StatusActive {
			g.resolveDeparture(room, playerID)
		}
		return nil
	})
	if errors.Is(err, registry.ErrRoomNotFound) {
		g.clearStamp(code)
	}
}

func (g *Gateway) sendError(c *client, msg string) {
	g.sendJSON(c, ErrorMessage{Type: "error", Message: msg})
}

func (g *Gateway) sendJSON(c *client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode outbound message")
		return
	}
	safeSend(c.send, data)
}

// broadcast fans a message out to every connection bound to the room.
func (g *Gateway) broadcast(code string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode broadcast")
		return
	}
	for _, c := range g.roomClients(code) {
		safeSend(c.send, data)
	}
}

func (g *Gateway) broadcastExcept(code string, except *client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	for _, c := range g.roomClients(code) {
		if c != except {
			safeSend(c.send, data)
		}
	}
}

func (g *Gateway) roomClients(code string) []*client {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*client, 0, len(g.byRoom[code]))
	for c := range g.byRoom[code] {
		out = append(out, c)
	}
	return out
}

// stamp returns a per-room monotonic millisecond timestamp so submission
// arbitration is stable even if the wall clock steps.
func (g *Gateway) stamp(code string) int64 {
	g.stampMu.Lock()
	defer g.stampMu.Unlock()
	now := time.Now().UnixMilli()
	if now <= g.stamps[code] {
		now = g.stamps[code] + 1
	}
	g.stamps[code] = now
	return now
}

// clearStamp drops the room's clock entry; called on game end and room
// teardown so the map tracks only rooms with live arbitration.
func (g *Gateway) clearStamp(code string) {
	g.stampMu.Lock()
	delete(g.stamps, code)
	g.stampMu.Unlock()
}

func playerKey(code, playerID string) string { return code + "/" + playerID }
func roomKey(code string) string             { return "room/" + code }

type errString string

func (e errString) Error() string { return string(e) }

func safeSend(ch chan []byte, msg []byte) {
	defer func() { _ = recover() }()
	select {
	case ch <- msg:
	default:
	}
}

func safeClose(ch chan []byte) {
	defer func() { _ = recover() }()
	close(ch)
}
