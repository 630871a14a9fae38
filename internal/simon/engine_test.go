package simon

import (
	"testing"

	"partyseq/internal/model"
)

func newState(playerIDs ...string) *model.RoundState {
	return NewRoundState(playerIDs, model.DifficultyMedium)
}

func TestNewRoundState(t *testing.T) {
	st := newState("p1", "p2", "p3")
	if st.Round != 1 {
		t.Fatalf("Round = %d, want 1", st.Round)
	}
	if len(st.Sequence) != 1 {
		t.Fatalf("len(Sequence) = %d, want 1", len(st.Sequence))
	}
	if !model.ValidColor(st.Sequence[0]) {
		t.Fatalf("invalid color %q", st.Sequence[0])
	}
	if st.Phase != model.PhaseShowingSequence {
		t.Fatalf("Phase = %q", st.Phase)
	}
	if st.TimeoutMS != 17000 {
		t.Fatalf("TimeoutMS = %d, want 17000", st.TimeoutMS)
	}
	for id, ps := range st.PlayerStates {
		if ps.Status != model.PlayerPlaying || ps.CurrentInputIndex != 0 {
			t.Fatalf("player %s state = %+v", id, ps)
		}
		if st.Scores[id] != 0 {
			t.Fatalf("player %s score = %d", id, st.Scores[id])
		}
	}
}

func TestTimeoutFormulaReferenceValues(t *testing.T) {
	// Medium constants give 1000*(15+2n).
	cases := map[int]int{1: 17000, 5: 25000, 10: 35000}
	for round, want := range cases {
		if got := TimeoutMS(model.DifficultyMedium, round); got != want {
			t.Fatalf("TimeoutMS(medium, %d) = %d, want %d", round, got, want)
		}
	}
}

func TestTimeoutFloor(t *testing.T) {
	// Hard shrinks per round and must bottom out at the preset minimum.
	p := PresetFor(model.DifficultyHard)
	if got := TimeoutMS(model.DifficultyHard, 1000); got != p.MinTimeoutMS {
		t.Fatalf("TimeoutMS(hard, 1000) = %d, want floor %d", got, p.MinTimeoutMS)
	}
}

func TestSequencePrefixExtension(t *testing.T) {
	st := newState("p1", "p2")
	prev := append([]model.Color(nil), st.Sequence...)
	for round := 2; round <= 20; round++ {
		AdvanceRound(st)
		if st.Round != round {
			t.Fatalf("Round = %d, want %d", st.Round, round)
		}
		if len(st.Sequence) != round {
			t.Fatalf("len(Sequence) = %d at round %d", len(st.Sequence), round)
		}
		for i, c := range prev {
			if st.Sequence[i] != c {
				t.Fatalf("round %d regenerated prefix at %d: %q != %q", round, i, st.Sequence[i], c)
			}
		}
		prev = append([]model.Color(nil), st.Sequence...)
	}
}

func TestAdvanceRoundResetsRemainingPlayers(t *testing.T) {
	st := newState("p1", "p2", "p3")
	st.PlayerStates["p1"].CurrentInputIndex = 3
	st.PlayerStates["p2"].CurrentInputIndex = 1
	st.PlayerStates["p3"].Status = model.PlayerEliminated
	st.PlayerStates["p3"].EliminatedAtRound = 1
	st.RoundWinnerID = "p1"
	st.Submissions["p1"] = &model.Submission{PlayerID: "p1"}

	AdvanceRound(st)

	if st.Round != 2 {
		t.Fatalf("Round = %d, want 2", st.Round)
	}
	if st.PlayerStates["p1"].CurrentInputIndex != 0 || st.PlayerStates["p2"].CurrentInputIndex != 0 {
		t.Fatal("remaining players' input index not reset")
	}
	if st.PlayerStates["p3"].Status != model.PlayerEliminated {
		t.Fatal("eliminated player resurrected")
	}
	if st.RoundWinnerID != "" || len(st.Submissions) != 0 {
		t.Fatal("round winner / submissions not cleared")
	}
	if st.Phase != model.PhaseShowingSequence {
		t.Fatalf("Phase = %q", st.Phase)
	}
}

func TestProcessSubmissionsEarliestCorrectWins(t *testing.T) {
	st := newState("p1", "p2")
	correct := append([]model.Color(nil), st.Sequence...)
	RecordSubmission(st, "p2", correct, 2000)
	RecordSubmission(st, "p1", correct, 1000)

	winner, elims := ProcessSubmissions(st)
	if winner != "p1" {
		t.Fatalf("winner = %q, want p1", winner)
	}
	if len(elims) != 0 {
		t.Fatalf("eliminations = %v, want none", elims)
	}
	if st.Scores["p1"] != 1 || st.Scores["p2"] != 0 {
		t.Fatalf("scores = %v", st.Scores)
	}
	if st.Phase != model.PhaseRoundEnd {
		t.Fatalf("Phase = %q", st.Phase)
	}
	if len(st.Submissions) != 0 {
		t.Fatal("submissions not cleared")
	}
}

func TestProcessSubmissionsTieAllScore(t *testing.T) {
	st := newState("p1", "p2", "p3")
	correct := append([]model.Color(nil), st.Sequence...)
	RecordSubmission(st, "p2", correct, 1000)
	RecordSubmission(st, "p1", correct, 1000)
	RecordSubmission(st, "p3", correct, 1500)

	winner, _ := ProcessSubmissions(st)
	// p2 arrived first at the tied timestamp.
	if winner != "p2" {
		t.Fatalf("winner = %q, want p2", winner)
	}
	if st.Scores["p1"] != 1 || st.Scores["p2"] != 1 || st.Scores["p3"] != 0 {
		t.Fatalf("scores = %v", st.Scores)
	}
}

func TestProcessSubmissionsAllWrong(t *testing.T) {
	st := newState("p1", "p2")
	wrong := []model.Color{st.Sequence[0], st.Sequence[0]}
	RecordSubmission(st, "p1", wrong, 1000)
	RecordSubmission(st, "p2", wrong, 1100)

	winner, elims := ProcessSubmissions(st)
	if winner != "" {
		t.Fatalf("winner = %q, want none", winner)
	}
	if len(elims) != 2 {
		t.Fatalf("eliminations = %v, want 2", elims)
	}
	for _, e := range elims {
		if e.Reason != ReasonWrongSequence || e.Round != 1 {
			t.Fatalf("unexpected elimination %+v", e)
		}
	}
	for id, ps := range st.PlayerStates {
		if ps.Status != model.PlayerEliminated || ps.EliminatedAtRound != 1 {
			t.Fatalf("player %s not eliminated: %+v", id, ps)
		}
	}
}

func TestEliminateNonSubmitters(t *testing.T) {
	st := newState("p1", "p2", "p3")
	RecordSubmission(st, "p1", st.Sequence, 500)
	st.PlayerStates["p3"].Status = model.PlayerEliminated
	st.PlayerStates["p3"].EliminatedAtRound = 1

	elims := EliminateNonSubmitters(st)
	if len(elims) != 1 || elims[0].PlayerID != "p2" || elims[0].Reason != ReasonTimeout {
		t.Fatalf("eliminations = %v, want p2 timeout", elims)
	}
	if st.PlayerStates["p2"].Status != model.PlayerEliminated {
		t.Fatal("p2 not eliminated")
	}
	// Repeat sweep is a no-op.
	if again := EliminateNonSubmitters(st); len(again) != 0 {
		t.Fatalf("second sweep eliminated %v", again)
	}
}

func TestSoloGameEndAsymmetry(t *testing.T) {
	st := newState("solo")
	if ShouldGameEnd(st) {
		t.Fatal("solo game ended with its player still playing")
	}
	st.PlayerStates["solo"].Status = model.PlayerEliminated
	if !ShouldGameEnd(st) {
		t.Fatal("solo game did not end after elimination")
	}
}

func TestMultiplayerGameEnd(t *testing.T) {
	st := newState("p1", "p2", "p3")
	if ShouldGameEnd(st) {
		t.Fatal("game ended with 3 active")
	}
	st.PlayerStates["p1"].Status = model.PlayerEliminated
	if ShouldGameEnd(st) {
		t.Fatal("game ended with 2 active")
	}
	st.PlayerStates["p2"].Status = model.PlayerEliminated
	if !ShouldGameEnd(st) {
		t.Fatal("game did not end with 1 active")
	}
	st.PlayerStates["p3"].Status = model.PlayerEliminated
	if !ShouldGameEnd(st) {
		t.Fatal("game did not end with 0 active")
	}
}

func TestWinnerSoleActive(t *testing.T) {
	st := newState("p1", "p2")
	st.PlayerStates["p1"].Status = model.PlayerEliminated
	st.PlayerStates["p1"].EliminatedAtRound = 3
	if got := Winner(st, []string{"p1", "p2"}); got != "p2" {
		t.Fatalf("Winner = %q, want p2", got)
	}
}

func TestWinnerByScoreAfterFullElimination(t *testing.T) {
	st := newState("a", "b", "c")
	for id, ps := range st.PlayerStates {
		ps.Status = model.PlayerEliminated
		ps.EliminatedAtRound = 4
		_ = id
	}
	st.Scores["a"] = 5
	st.Scores["b"] = 10
	st.Scores["c"] = 7
	if got := Winner(st, []string{"a", "b", "c"}); got != "b" {
		t.Fatalf("Winner = %q, want b", got)
	}
}

func TestWinnerTieBreakLatestEliminated(t *testing.T) {
	st := newState("a", "b")
	st.Scores["a"] = 4
	st.Scores["b"] = 4
	st.PlayerStates["a"].Status = model.PlayerEliminated
	st.PlayerStates["a"].EliminatedAtRound = 2
	st.PlayerStates["b"].Status = model.PlayerEliminated
	st.PlayerStates["b"].EliminatedAtRound = 5
	if got := Winner(st, []string{"a", "b"}); got != "b" {
		t.Fatalf("Winner = %q, want b (survived longer)", got)
	}
}

func TestWinnerTieBreakJoinOrder(t *testing.T) {
	st := newState("x", "y")
	st.Scores["x"] = 2
	st.Scores["y"] = 2
	st.PlayerStates["x"].Status = model.PlayerEliminated
	st.PlayerStates["x"].EliminatedAtRound = 3
	st.PlayerStates["y"].Status = model.PlayerEliminated
	st.PlayerStates["y"].EliminatedAtRound = 3
	if got := Winner(st, []string{"y", "x"}); got != "y" {
		t.Fatalf("Winner = %q, want y (joined first)", got)
	}
}

func TestCheckSubmission(t *testing.T) {
	st := newState("p1")
	st.Sequence = []model.Color{model.ColorRed, model.ColorBlue}
	if !CheckSubmission(st, []model.Color{model.ColorRed, model.ColorBlue}) {
		t.Fatal("exact match rejected")
	}
	if CheckSubmission(st, []model.Color{model.ColorRed}) {
		t.Fatal("short attempt accepted")
	}
	if CheckSubmission(st, []model.Color{model.ColorBlue, model.ColorRed}) {
		t.Fatal("reordered attempt accepted")
	}
}
