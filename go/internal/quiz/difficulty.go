package quiz

import (
	"fmt"
	"strings"
)

// Difficulty is a game preset bundling a time limit and a number range.
// The zero value means no difficulty has been chosen yet.
type Difficulty string

const (
	DifficultyNone   Difficulty = ""
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Preset holds the round parameters for a difficulty.
type Preset struct {
	TimeLimitSec int `json:"time_limit_sec"`
	// UpperBound is exclusive: addends are drawn from [0, UpperBound).
	UpperBound int `json:"upper_bound"`
}

var presets = map[Difficulty]Preset{
	DifficultyEasy:   {TimeLimitSec: 15, UpperBound: 50},
	DifficultyMedium: {TimeLimitSec: 10, UpperBound: 100},
	DifficultyHard:   {TimeLimitSec: 5, UpperBound: 500},
}

// Difficulties returns the selectable levels from easiest to hardest.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// Preset returns the round parameters for d.
func (d Difficulty) Preset() (Preset, bool) {
	p, ok := presets[d]
	return p, ok
}

// Valid reports whether d is one of the selectable levels.
func (d Difficulty) Valid() bool {
	_, ok := presets[d]
	return ok
}

// ParseDifficulty accepts a level name in any case, e.g. "easy" or "HARD".
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return DifficultyNone, fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
	return d, nil
}
