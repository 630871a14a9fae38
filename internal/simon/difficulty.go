package simon

import (
	"time"

	"partyseq/internal/model"
)

// Preset holds the timing constants for one difficulty. TimeoutDecrementMS
// may be negative, in which case the input window grows with the round to
// match the lengthening sequence.
type Preset struct {
	ShowColorDurationMS int
	ShowColorGapMS      int
	InitialTimeoutMS    int
	TimeoutDecrementMS  int
	MinTimeoutMS        int
}

var presets = map[model.Difficulty]Preset{
	model.DifficultyEasy: {
		ShowColorDurationMS: 800,
		ShowColorGapMS:      300,
		InitialTimeoutMS:    20000,
		TimeoutDecrementMS:  -2500,
		MinTimeoutMS:        8000,
	},
	model.DifficultyMedium: {
		ShowColorDurationMS: 600,
		ShowColorGapMS:      250,
		InitialTimeoutMS:    17000,
		TimeoutDecrementMS:  -2000,
		MinTimeoutMS:        5000,
	},
	model.DifficultyHard: {
		ShowColorDurationMS: 400,
		ShowColorGapMS:      200,
		InitialTimeoutMS:    10000,
		TimeoutDecrementMS:  500,
		MinTimeoutMS:        4000,
	},
}

// PresetFor returns the constants for d, defaulting to medium.
func PresetFor(d model.Difficulty) Preset {
	if p, ok := presets[d]; ok {
		return p
	}
	return presets[model.DifficultyMedium]
}

// TimeoutMS computes the input window for a round:
// max(min, initial - (round-1)*decrement).
func TimeoutMS(d model.Difficulty, round int) int {
	p := PresetFor(d)
	ms := p.InitialTimeoutMS - (round-1)*p.TimeoutDecrementMS
	if ms < p.MinTimeoutMS {
		return p.MinTimeoutMS
	}
	return ms
}

// ShowDuration is how long the client spends replaying an n-color sequence.
// The gateway waits this long before opening the input phase.
func ShowDuration(d model.Difficulty, sequenceLen int) time.Duration {
	p := PresetFor(d)
	if sequenceLen < 1 {
		sequenceLen = 1
	}
	ms := sequenceLen*p.ShowColorDurationMS + (sequenceLen-1)*p.ShowColorGapMS
	return time.Duration(ms) * time.Millisecond
}
