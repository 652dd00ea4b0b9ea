package quiz

import "errors"

var (
	// ErrUnknownDifficulty is returned for a level outside Easy, Medium and Hard.
	ErrUnknownDifficulty = errors.New("unknown difficulty")

	// ErrNoDifficulty is returned by NewGame before a difficulty has been chosen.
	ErrNoDifficulty = errors.New("no difficulty selected")

	// ErrRoundNotActive is returned by SubmitAnswer once the round has ended.
	// The controller state is left untouched.
	ErrRoundNotActive = errors.New("round is not active")
)
