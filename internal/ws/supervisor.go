package ws

import (
	"time"

	"github.com/rs/zerolog/log"

	"partyseq/internal/model"
)

// superviseDisconnect runs the two-phase departure clock for a player
// whose socket died. Phase one waits out the buffer so a page refresh
// never surfaces; phase two holds the seat through the grace window and
// then removes the player for good. A join_room_socket bind cancels both
// timers through the player key.
func (g *Gateway) superviseDisconnect(code, playerID, connID string) {
	key := playerKey(code, playerID)
	g.timers.After(key, g.cfg.DisconnectBuffer, func() {
		err := g.reg.Do(code, func(room *model.Room) error {
			p := room.Player(playerID)
			if p == nil || p.LiveConnectionID != connID {
				// Already reconnected on a fresh socket or removed.
				return errIgnored
			}
			p.Connected = false
			p.LiveConnectionID = ""
			p.LastActivity = time.Now()
			g.broadcast(code, PlayerDisconnected{Type: "player_disconnected", PlayerID: playerID})

			// A disconnected player no longer holds the round open.
			if room.Status == model.StatusActive {
				if room.GameMode == model.ModeColorRace {
					if st := room.RaceState; st != nil && st.Phase == model.PhaseInput && raceFanInComplete(room, st) {
						g.resolveRaceRound(room)
					}
				} else if st := room.GameState; st != nil && st.Phase == model.PhaseInput && simonFanInComplete(room, st) {
					g.resolveSimonRound(room, nil)
				}
			}
			return nil
		})
		if err != nil {
			return
		}
		log.Info().Str("code", code).Str("player", playerID).Dur("grace", g.cfg.DisconnectGrace).Msg("player disconnected")

		g.timers.After(key, g.cfg.DisconnectGrace, func() {
			g.expireGrace(code, playerID)
		})
	})
}

// expireGrace removes the player once the grace window runs out. The
// player's state is re-checked under the room lock first: a reconnect can
// land between the buffer callback and the grace timer's registration, in
// which case CancelAll found nothing to cancel and this fires for a
// player who is back. Removal only proceeds for a player still offline.
func (g *Gateway) expireGrace(code, playerID string) {
	err := g.reg.Do(code, func(room *model.Room) error {
		p := room.Player(playerID)
		if p == nil || p.Connected || p.LiveConnectionID != "" {
			return errIgnored
		}
		return nil
	})
	if err != nil {
		return
	}
	log.Info().Str("code", code).Str("player", playerID).Msg("grace expired, removing player")
	g.removePlayerAndResolve(code, playerID)
}
