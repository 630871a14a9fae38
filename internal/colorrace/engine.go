// Package colorrace implements the single-shot answer-race mode: each
// round shows a color word drawn in a (possibly mismatched) ink color, and
// the first player to tap the named color scores. First to WinningScore
// wins. Arbitration follows the same timestamp-then-arrival rule as the
// sequence game, with no eliminations.
package colorrace

import (
	"math/rand"
	"sort"

	"partyseq/internal/model"
)

const (
	// WinningScore ends the game once any player reaches it.
	WinningScore = 5

	// RoundTimeoutMS is the flat answer window per round.
	RoundTimeoutMS = 5000

	// PromptShowMS is how long clients display the prompt before the
	// answer window opens.
	PromptShowMS = 1500
)

// NewRaceState starts round 1 with a fresh prompt and zeroed scores.
func NewRaceState(playerIDs []string) *model.RaceState {
	st := &model.RaceState{
		Phase:        model.PhaseShowingSequence,
		Round:        1,
		TimeoutMS:    RoundTimeoutMS,
		Scores:       make(map[string]int, len(playerIDs)),
		Submissions:  make(map[string]*model.Submission),
		WinningScore: WinningScore,
	}
	for _, id := range playerIDs {
		st.Scores[id] = 0
	}
	rollPrompt(st)
	return st
}

// rollPrompt picks the target color and an independent display color, so
// roughly three quarters of prompts are mismatched.
func rollPrompt(st *model.RaceState) {
	st.TargetColor = model.Colors[rand.Intn(len(model.Colors))]
	st.DisplayColor = model.Colors[rand.Intn(len(model.Colors))]
}

// RecordAnswer stores a player's single-color answer for the round.
func RecordAnswer(st *model.RaceState, playerID string, answer model.Color, timestampMS int64) *model.Submission {
	sub := &model.Submission{
		PlayerID:    playerID,
		Sequence:    []model.Color{answer},
		TimestampMS: timestampMS,
		IsCorrect:   answer == st.TargetColor,
		Order:       len(st.Submissions),
	}
	st.Submissions[playerID] = sub
	return sub
}

// ProcessRound scores the earliest correct answer (ties by arrival order
// do not split the point: only the first counts, since a race has one
// winner) and clears submissions.
func ProcessRound(st *model.RaceState) (winnerID string) {
	var correct []*model.Submission
	for _, sub := range st.Submissions {
		if sub.IsCorrect {
			correct = append(correct, sub)
		}
	}
	if len(correct) > 0 {
		sort.Slice(correct, func(i, j int) bool {
			if correct[i].TimestampMS != correct[j].TimestampMS {
				return correct[i].TimestampMS < correct[j].TimestampMS
			}
			return correct[i].Order < correct[j].Order
		})
		winnerID = correct[0].PlayerID
		st.Scores[winnerID]++
	}
	st.RoundWinnerID = winnerID
	st.Submissions = make(map[string]*model.Submission)
	st.Phase = model.PhaseRoundEnd
	st.TimeoutAt = nil
	return winnerID
}

// AdvanceRound rolls the next prompt.
func AdvanceRound(st *model.RaceState) {
	st.Round++
	st.RoundWinnerID = ""
	st.Submissions = make(map[string]*model.Submission)
	st.TimeoutAt = nil
	rollPrompt(st)
	st.Phase = model.PhaseShowingSequence
}

// ShouldGameEnd reports whether any player has reached the winning score.
func ShouldGameEnd(st *model.RaceState) bool {
	for _, score := range st.Scores {
		if score >= st.WinningScore {
			return true
		}
	}
	return false
}

// Winner returns the highest scorer, ties broken by earliest joinOrder
// position.
func Winner(st *model.RaceState, joinOrder []string) string {
	joinPos := make(map[string]int, len(joinOrder))
	for i, id := range joinOrder {
		joinPos[id] = i
	}
	ids := make([]string, 0, len(st.Scores))
	for id := range st.Scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var winner string
	for _, id := range ids {
		if winner == "" {
			winner = id
			continue
		}
		if st.Scores[id] > st.Scores[winner] {
			winner = id
			continue
		}
		if st.Scores[id] == st.Scores[winner] && joinPos[id] < joinPos[winner] {
			winner = id
		}
	}
	return winner
}
