// Package simon implements the sequence-memory round engine as pure state
// transitions over model.RoundState. It performs no I/O and no scheduling;
// the session gateway drives phases and timers around it.
package simon

import (
	"math/rand"
	"sort"

	"partyseq/internal/model"
)

const (
	ReasonWrongSequence = "wrong_sequence"
	ReasonTimeout       = "timeout"
)

// Elimination records one player leaving the round and why.
type Elimination struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason"`
	Round    int    `json:"round"`
}

func randomColor() model.Color {
	return model.Colors[rand.Intn(len(model.Colors))]
}

// NewRoundState starts round 1: a single random color, every player
// playing at input index 0 with score 0.
func NewRoundState(playerIDs []string, d model.Difficulty) *model.RoundState {
	st := &model.RoundState{
		Phase:        model.PhaseShowingSequence,
		Sequence:     []model.Color{randomColor()},
		Round:        1,
		PlayerStates: make(map[string]*model.PlayerRoundState, len(playerIDs)),
		TimeoutMS:    TimeoutMS(d, 1),
		Scores:       make(map[string]int, len(playerIDs)),
		Submissions:  make(map[string]*model.Submission),
		Difficulty:   d,
	}
	for _, id := range playerIDs {
		st.PlayerStates[id] = &model.PlayerRoundState{Status: model.PlayerPlaying}
		st.Scores[id] = 0
	}
	return st
}

// CheckSubmission reports whether the attempt reproduces the full target
// sequence.
func CheckSubmission(st *model.RoundState, attempt []model.Color) bool {
	if len(attempt) != len(st.Sequence) {
		return false
	}
	for i, c := range attempt {
		if c != st.Sequence[i] {
			return false
		}
	}
	return true
}

// RecordSubmission stores a player's attempt with its arrival order so
// exact-timestamp ties arbitrate deterministically.
func RecordSubmission(st *model.RoundState, playerID string, attempt []model.Color, timestampMS int64) *model.Submission {
	sub := &model.Submission{
		PlayerID:    playerID,
		Sequence:    append([]model.Color(nil), attempt...),
		TimestampMS: timestampMS,
		IsCorrect:   CheckSubmission(st, attempt),
		Order:       len(st.Submissions),
	}
	st.Submissions[playerID] = sub
	return sub
}

// EliminateNonSubmitters removes every still-playing player without a
// submission, used by the gateway's round-timeout sweep.
func EliminateNonSubmitters(st *model.RoundState) []Elimination {
	var elims []Elimination
	for _, id := range sortedPlayerIDs(st) {
		ps := st.PlayerStates[id]
		if ps.Status != model.PlayerPlaying {
			continue
		}
		if _, ok := st.Submissions[id]; ok {
			continue
		}
		ps.Status = model.PlayerEliminated
		ps.EliminatedAtRound = st.Round
		elims = append(elims, Elimination{PlayerID: id, Reason: ReasonTimeout, Round: st.Round})
	}
	return elims
}

// ProcessSubmissions arbitrates the collected submissions: wrong answers
// are eliminated, the earliest correct answer wins the round, and every
// correct answer sharing that exact timestamp also scores. Submissions are
// cleared afterwards and the phase moves to round_end.
func ProcessSubmissions(st *model.RoundState) (winnerID string, elims []Elimination) {
	var correct []*model.Submission
	for _, sub := range st.Submissions {
		if sub.IsCorrect {
			correct = append(correct, sub)
			continue
		}
		ps := st.PlayerStates[sub.PlayerID]
		if ps != nil && ps.Status == model.PlayerPlaying {
			ps.Status = model.PlayerEliminated
			ps.EliminatedAtRound = st.Round
		}
		elims = append(elims, Elimination{PlayerID: sub.PlayerID, Reason: ReasonWrongSequence, Round: st.Round})
	}
	sort.Slice(elims, func(i, j int) bool { return elims[i].PlayerID < elims[j].PlayerID })

	if len(correct) > 0 {
		sort.Slice(correct, func(i, j int) bool {
			if correct[i].TimestampMS != correct[j].TimestampMS {
				return correct[i].TimestampMS < correct[j].TimestampMS
			}
			return correct[i].Order < correct[j].Order
		})
		winnerID = correct[0].PlayerID
		best := correct[0].TimestampMS
		for _, sub := range correct {
			if sub.TimestampMS != best {
				break
			}
			st.Scores[sub.PlayerID]++
		}
	}

	st.RoundWinnerID = winnerID
	st.Submissions = make(map[string]*model.Submission)
	st.Phase = model.PhaseRoundEnd
	st.TimeoutAt = nil
	st.TimerStartedAt = nil
	return winnerID, elims
}

// AdvanceRound extends the sequence by exactly one color (the prior prefix
// is never regenerated), recomputes the timeout, and resets the remaining
// players for the next round.
func AdvanceRound(st *model.RoundState) {
	st.Sequence = append(st.Sequence, randomColor())
	st.Round++
	st.TimeoutMS = TimeoutMS(st.Difficulty, st.Round)
	st.TimeoutAt = nil
	st.TimerStartedAt = nil
	st.RoundWinnerID = ""
	st.Submissions = make(map[string]*model.Submission)
	for _, ps := range st.PlayerStates {
		if ps.Status == model.PlayerPlaying {
			ps.CurrentInputIndex = 0
		}
	}
	st.Phase = model.PhaseShowingSequence
}

// ActiveCount returns how many players are still playing.
func ActiveCount(st *model.RoundState) int {
	n := 0
	for _, ps := range st.PlayerStates {
		if ps.Status == model.PlayerPlaying {
			n++
		}
	}
	return n
}

// ShouldGameEnd applies the solo/multiplayer asymmetry: a solo game runs
// until its only player is eliminated, a multiplayer game ends as soon as
// at most one player remains.
func ShouldGameEnd(st *model.RoundState) bool {
	active := ActiveCount(st)
	if len(st.PlayerStates) == 1 {
		return active == 0
	}
	return active <= 1
}

// Winner picks the game winner: the sole remaining active player, or with
// nobody left active the highest cumulative score. Equal top scores go to
// whoever was eliminated latest, then to the earliest position in
// joinOrder.
func Winner(st *model.RoundState, joinOrder []string) string {
	var activeID string
	if ActiveCount(st) == 1 {
		for id, ps := range st.PlayerStates {
			if ps.Status == model.PlayerPlaying {
				activeID = id
			}
		}
		return activeID
	}

	joinPos := make(map[string]int, len(joinOrder))
	for i, id := range joinOrder {
		joinPos[id] = i
	}

	var winner string
	for _, id := range sortedPlayerIDs(st) {
		if winner == "" {
			winner = id
			continue
		}
		if better(st, joinPos, id, winner) {
			winner = id
		}
	}
	return winner
}

func better(st *model.RoundState, joinPos map[string]int, a, b string) bool {
	if st.Scores[a] != st.Scores[b] {
		return st.Scores[a] > st.Scores[b]
	}
	ar, br := st.PlayerStates[a].EliminatedAtRound, st.PlayerStates[b].EliminatedAtRound
	if ar != br {
		return ar > br
	}
	return joinPos[a] < joinPos[b]
}

func sortedPlayerIDs(st *model.RoundState) []string {
	ids := make([]string, 0, len(st.PlayerStates))
	for id := range st.PlayerStates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
