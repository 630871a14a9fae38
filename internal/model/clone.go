package model

// Clone returns a deep copy of the room. The registry hands clones to the
// persistence queue and to broadcast encoding so neither observes later
// mutations made under the room lock.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		pc := *p
		cp.Players[i] = &pc
	}
	cp.GameState = r.GameState.Clone()
	cp.RaceState = r.RaceState.Clone()
	return &cp
}

func (s *RoundState) Clone() *RoundState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Sequence = append([]Color(nil), s.Sequence...)
	cp.PlayerStates = make(map[string]*PlayerRoundState, len(s.PlayerStates))
	for id, ps := range s.PlayerStates {
		psc := *ps
		cp.PlayerStates[id] = &psc
	}
	cp.Scores = cloneScores(s.Scores)
	cp.Submissions = cloneSubmissions(s.Submissions)
	if s.TimeoutAt != nil {
		t := *s.TimeoutAt
		cp.TimeoutAt = &t
	}
	if s.TimerStartedAt != nil {
		t := *s.TimerStartedAt
		cp.TimerStartedAt = &t
	}
	return &cp
}

func (s *RaceState) Clone() *RaceState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Scores = cloneScores(s.Scores)
	cp.Submissions = cloneSubmissions(s.Submissions)
	if s.TimeoutAt != nil {
		t := *s.TimeoutAt
		cp.TimeoutAt = &t
	}
	return &cp
}

func cloneScores(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneSubmissions(in map[string]*Submission) map[string]*Submission {
	out := make(map[string]*Submission, len(in))
	for k, v := range in {
		vc := *v
		vc.Sequence = append([]Color(nil), v.Sequence...)
		out[k] = &vc
	}
	return out
}
