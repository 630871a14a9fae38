package ws

import (
	"time"

	"github.com/rs/zerolog/log"

	"partyseq/internal/colorrace"
	"partyseq/internal/model"
	"partyseq/internal/simon"
)

// showBuffer pads the sequence-display window so slow clients finish the
// animation before input opens.
const showBuffer = 250 * time.Millisecond

// errIgnored marks intents dropped without a client-visible error: stale
// submits, double submits, submits from eliminated players.
var errIgnored = errString("ignored")

// Everything in this file runs with the room's lock held via registry.Do,
// either directly from an intent handler or from a timer callback that
// opens its own Do. Timer callbacks re-validate phase and round before
// acting so superseded timers fall through harmlessly.

func (g *Gateway) beginGame(room *model.Room) {
	room.Status = model.StatusActive
	ids := make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		ids = append(ids, p.ID)
	}
	log.Info().Str("code", room.Code).Str("mode", string(room.GameMode)).Int("players", len(ids)).Msg("game started")

	if room.GameMode == model.ModeColorRace {
		room.RaceState = colorrace.NewRaceState(ids)
		g.broadcast(room.Code, RoomStateUpdate{Type: "room_state_update", Room: room.Clone()})
		g.startRaceRound(room)
		return
	}
	room.GameState = simon.NewRoundState(ids, room.Difficulty)
	g.broadcast(room.Code, RoomStateUpdate{Type: "room_state_update", Room: room.Clone()})
	g.startSimonRound(room)
}

// --- simon mode ---

func (g *Gateway) startSimonRound(room *model.Room) {
	st := room.GameState
	g.broadcast(room.Code, RoundStarted{
		Type:      "round_started",
		Round:     st.Round,
		Sequence:  append([]model.Color(nil), st.Sequence...),
		TimeoutMS: st.TimeoutMS,
		Phase:     string(st.Phase),
	})
	round := st.Round
	showFor := simon.ShowDuration(st.Difficulty, len(st.Sequence)) + showBuffer
	g.timers.After(roomKey(room.Code), showFor, func() {
		g.openSimonInput(room.Code, round)
	})
}

func (g *Gateway) openSimonInput(code string, round int) {
	_ = g.reg.Do(code, func(room *model.Room) error {
		st := room.GameState
		if room.Status != model.StatusActive || st == nil || st.Round != round || st.Phase != model.PhaseShowingSequence {
			return errIgnored
		}
		now := time.Now()
		at := now.Add(time.Duration(st.TimeoutMS) * time.Millisecond)
		st.Phase = model.PhaseInput
		st.TimerStartedAt = &now
		st.TimeoutAt = &at
		g.broadcast(code, InputPhase{Type: "input_phase", Round: st.Round, TimeoutAt: at.UnixMilli()})
		g.timers.After(roomKey(code), time.Duration(st.TimeoutMS)*time.Millisecond, func() {
			g.simonTimeout(code, round)
		})
		return nil
	})
}

// simonTimeout sweeps players who never answered and settles the round.
func (g *Gateway) simonTimeout(code string, round int) {
	_ = g.reg.Do(code, func(room *model.Room) error {
		st := room.GameState
		if room.Status != model.StatusActive || st == nil || st.Round != round || st.Phase != model.PhaseInput {
			return errIgnored
		}
		swept := simon.EliminateNonSubmitters(st)
		g.resolveSimonRound(room, swept)
		return nil
	})
}

func (g *Gateway) handleSubmit(c *client, intent Intent) {
	if !g.bound(c, intent) {
		g.sendError(c, errPlayerNotInRoom)
		return
	}
	_ = g.reg.Do(intent.Code, func(room *model.Room) error {
		if p := room.Player(intent.PlayerID); p != nil {
			p.LastActivity = time.Now()
		}
		if room.GameMode == model.ModeColorRace {
			return g.raceSubmit(room, intent)
		}
		st := room.GameState
		if room.Status != model.StatusActive || st == nil || st.Phase != model.PhaseInput {
			return errIgnored
		}
		ps := st.PlayerStates[intent.PlayerID]
		if ps == nil || ps.Status != model.PlayerPlaying {
			return errIgnored
		}
		if _, dup := st.Submissions[intent.PlayerID]; dup {
			return errIgnored
		}
		sub := simon.RecordSubmission(st, intent.PlayerID, intent.Sequence, g.stamp(room.Code))
		ps.CurrentInputIndex = len(intent.Sequence)
		log.Debug().Str("code", room.Code).Str("player", intent.PlayerID).Bool("correct", sub.IsCorrect).Msg("submission")

		if simonFanInComplete(room, st) {
			g.resolveSimonRound(room, nil)
		}
		return nil
	})
}

// simonFanInComplete reports whether every connected, still-playing
// player has submitted. Disconnected players don't hold the round open;
// the timeout or the disconnect supervisor resolves them.
func simonFanInComplete(room *model.Room, st *model.RoundState) bool {
	for _, p := range room.Players {
		ps := st.PlayerStates[p.ID]
		if ps == nil || ps.Status != model.PlayerPlaying || !p.Connected {
			continue
		}
		if _, ok := st.Submissions[p.ID]; !ok {
			return false
		}
	}
	return true
}

func (g *Gateway) resolveSimonRound(room *model.Room, swept []simon.Elimination) {
	st := room.GameState
	started := time.Now()
	if st.TimerStartedAt != nil {
		started = *st.TimerStartedAt
	}
	round := st.Round
	winner, elims := simon.ProcessSubmissions(st)
	all := append(swept, elims...)
	if all == nil {
		all = []simon.Elimination{}
	}
	g.metrics.ObserveRound(started)

	g.broadcast(room.Code, RoundResult{
		Type:         "round_result",
		Round:        round,
		WinnerID:     winner,
		Eliminations: all,
		Scores:       copyScores(st.Scores),
	})

	if simon.ShouldGameEnd(st) {
		g.finishSimon(room)
		return
	}
	g.timers.After(roomKey(room.Code), g.cfg.InterRoundDelay, func() {
		g.nextSimonRound(room.Code, round)
	})
}

func (g *Gateway) nextSimonRound(code string, prevRound int) {
	_ = g.reg.Do(code, func(room *model.Room) error {
		st := room.GameState
		if room.Status != model.StatusActive || st == nil || st.Round != prevRound || st.Phase != model.PhaseRoundEnd {
			return errIgnored
		}
		simon.AdvanceRound(st)
		g.startSimonRound(room)
		return nil
	})
}

func (g *Gateway) finishSimon(room *model.Room) {
	st := room.GameState
	room.Status = model.StatusFinished
	joinOrder := make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		joinOrder = append(joinOrder, p.ID)
	}
	winner := simon.Winner(st, joinOrder)
	g.timers.CancelAll(roomKey(room.Code))
	g.clearStamp(room.Code)
	log.Info().Str("code", room.Code).Str("winner", winner).Int("rounds", st.Round).Msg("game over")

	g.broadcast(room.Code, GameOver{Type: "game_over", WinnerID: winner, Scores: copyScores(st.Scores)})
	g.broadcast(room.Code, RoomStateUpdate{Type: "room_state_update", Room: room.Clone()})
}

// resolveDeparture settles a running game after a player is permanently
// removed: a departed player counts as eliminated, which can end the game
// or unblock the current round's fan-in.
func (g *Gateway) resolveDeparture(room *model.Room, playerID string) {
	if room.GameMode == model.ModeColorRace {
		// Races have no eliminations; the departed player simply stops
		// scoring. An empty room is already deleted by the registry.
		return
	}
	st := room.GameState
	if st == nil {
		return
	}
	if ps := st.PlayerStates[playerID]; ps != nil && ps.Status == model.PlayerPlaying {
		ps.Status = model.PlayerEliminated
		ps.EliminatedAtRound = st.Round
	}
	if simon.ShouldGameEnd(st) {
		g.finishSimon(room)
		return
	}
	if st.Phase == model.PhaseInput && simonFanInComplete(room, st) {
		g.resolveSimonRound(room, nil)
	}
}

// --- color-race mode ---

func (g *Gateway) startRaceRound(room *model.Room) {
	st := room.RaceState
	g.broadcast(room.Code, RoundStarted{
		Type:         "round_started",
		Round:        st.Round,
		TargetColor:  st.TargetColor,
		DisplayColor: st.DisplayColor,
		TimeoutMS:    st.TimeoutMS,
		Phase:        string(st.Phase),
	})
	round := st.Round
	g.timers.After(roomKey(room.Code), colorrace.PromptShowMS*time.Millisecond, func() {
		g.openRaceInput(room.Code, round)
	})
}

func (g *Gateway) openRaceInput(code string, round int) {
	_ = g.reg.Do(code, func(room *model.Room) error {
		st := room.RaceState
		if room.Status != model.StatusActive || st == nil || st.Round != round || st.Phase != model.PhaseShowingSequence {
			return errIgnored
		}
		now := time.Now()
		at := now.Add(time.Duration(st.TimeoutMS) * time.Millisecond)
		st.Phase = model.PhaseInput
		st.TimeoutAt = &at
		g.broadcast(code, InputPhase{Type: "input_phase", Round: st.Round, TimeoutAt: at.UnixMilli()})
		g.timers.After(roomKey(code), time.Duration(st.TimeoutMS)*time.Millisecond, func() {
			g.raceTimeout(code, round)
		})
		return nil
	})
}

func (g *Gateway) raceTimeout(code string, round int) {
	_ = g.reg.Do(code, func(room *model.Room) error {
		st := room.RaceState
		if room.Status != model.StatusActive || st == nil || st.Round != round || st.Phase != model.PhaseInput {
			return errIgnored
		}
		g.resolveRaceRound(room)
		return nil
	})
}

func (g *Gateway) raceSubmit(room *model.Room, intent Intent) error {
	st := room.RaceState
	if room.Status != model.StatusActive || st == nil || st.Phase != model.PhaseInput {
		return errIgnored
	}
	if len(intent.Sequence) != 1 || !model.ValidColor(intent.Sequence[0]) {
		return errIgnored
	}
	if _, ok := st.Scores[intent.PlayerID]; !ok {
		return errIgnored
	}
	if _, dup := st.Submissions[intent.PlayerID]; dup {
		return errIgnored
	}
	colorrace.RecordAnswer(st, intent.PlayerID, intent.Sequence[0], g.stamp(room.Code))

	if raceFanInComplete(room, st) {
		g.resolveRaceRound(room)
	}
	return nil
}

func raceFanInComplete(room *model.Room, st *model.RaceState) bool {
	for _, p := range room.Players {
		if !p.Connected {
			continue
		}
		if _, ok := st.Scores[p.ID]; !ok {
			continue
		}
		if _, ok := st.Submissions[p.ID]; !ok {
			return false
		}
	}
	return true
}

func (g *Gateway) resolveRaceRound(room *model.Room) {
	st := room.RaceState
	round := st.Round
	winner := colorrace.ProcessRound(st)
	g.metrics.RoundsPlayed.Inc()

	g.broadcast(room.Code, RoundResult{
		Type:         "round_result",
		Round:        round,
		WinnerID:     winner,
		Eliminations: []simon.Elimination{},
		Scores:       copyScores(st.Scores),
	})

	if colorrace.ShouldGameEnd(st) {
		room.Status = model.StatusFinished
		joinOrder := make([]string, 0, len(room.Players))
		for _, p := range room.Players {
			joinOrder = append(joinOrder, p.ID)
		}
		overall := colorrace.Winner(st, joinOrder)
		g.timers.CancelAll(roomKey(room.Code))
		g.clearStamp(room.Code)
		log.Info().Str("code", room.Code).Str("winner", overall).Msg("race over")
		g.broadcast(room.Code, GameOver{Type: "game_over", WinnerID: overall, Scores: copyScores(st.Scores)})
		g.broadcast(room.Code, RoomStateUpdate{Type: "room_state_update", Room: room.Clone()})
		return
	}
	g.timers.After(roomKey(room.Code), g.cfg.InterRoundDelay, func() {
		g.nextRaceRound(room.Code, round)
	})
}

func (g *Gateway) nextRaceRound(code string, prevRound int) {
	_ = g.reg.Do(code, func(room *model.Room) error {
		st := room.RaceState
		if room.Status != model.StatusActive || st == nil || st.Round != prevRound || st.Phase != model.PhaseRoundEnd {
			return errIgnored
		}
		colorrace.AdvanceRound(st)
		g.startRaceRound(room)
		return nil
	})
}

func copyScores(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
