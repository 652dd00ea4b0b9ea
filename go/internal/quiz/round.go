package quiz

import (
	"github.com/mcdev12/sumrush/go/internal/random"
)

// Countdown arms and disarms the external one-second timer that drives Tick.
// Start must cancel any previously armed timer before arming a new one.
type Countdown interface {
	Start()
	Stop()
}

type nopCountdown struct{}

func (nopCountdown) Start() {}
func (nopCountdown) Stop()  {}

// Phase is the position of the controller in the round lifecycle.
type Phase string

const (
	PhaseNoDifficulty Phase = "NO_DIFFICULTY"
	PhaseRoundActive  Phase = "ROUND_ACTIVE"
	PhaseRoundEnded   Phase = "ROUND_ENDED"
)

// RoundState is everything the shell needs to render the current round.
type RoundState struct {
	TimeLeftSec    int    `json:"time_left_sec"`
	AnswerText     string `json:"answer_text"`
	Message        string `json:"message"`
	SubmitEnabled  bool   `json:"submit_enabled"`
	NewGameEnabled bool   `json:"new_game_enabled"`
}

// RoundController owns difficulty selection, problem generation, countdown
// state and answer evaluation for a single player.
//
// It is not safe for concurrent use; the owner serialises calls, including
// the Tick calls made on behalf of the countdown.
type RoundController struct {
	difficulty Difficulty
	preset     Preset
	problem    Problem
	state      RoundState
	outcome    Outcome

	src       NumberSource
	countdown Countdown
}

// Option configures a RoundController.
type Option func(*RoundController)

// WithNumberSource sets the generator used for new problems.
func WithNumberSource(src NumberSource) Option {
	return func(c *RoundController) {
		c.src = src
	}
}

// WithCountdown sets the timer hook armed at the start of every round.
func WithCountdown(cd Countdown) Option {
	return func(c *RoundController) {
		c.countdown = cd
	}
}

// NewRoundController returns a controller in the pre-game state.
func NewRoundController(opts ...Option) *RoundController {
	c := &RoundController{}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = random.NewAutoSource()
	}
	if c.countdown == nil {
		c.countdown = nopCountdown{}
	}
	return c
}

// SelectDifficulty activates d and starts a fresh round with its bounds.
func (c *RoundController) SelectDifficulty(d Difficulty) error {
	preset, ok := d.Preset()
	if !ok {
		return ErrUnknownDifficulty
	}

	c.difficulty = d
	c.preset = preset
	c.startRound()
	return nil
}

// ChangeDifficulty returns to the pre-game selection state.
func (c *RoundController) ChangeDifficulty() {
	c.countdown.Stop()
	c.difficulty = DifficultyNone
	c.preset = Preset{}
	c.problem = Problem{}
	c.state = RoundState{}
	c.outcome = OutcomeNone
}

// NewGame starts another round at the current difficulty.
func (c *RoundController) NewGame() error {
	if c.difficulty == DifficultyNone {
		return ErrNoDifficulty
	}

	c.startRound()
	return nil
}

// Tick applies one elapsed second. It reports whether this tick ended the
// round; ticks outside an active round change nothing.
func (c *RoundController) Tick() bool {
	if !c.state.SubmitEnabled {
		return false
	}

	c.state.TimeLeftSec = max(c.state.TimeLeftSec-1, 0)
	if c.state.TimeLeftSec > 0 {
		return false
	}

	c.endRound(OutcomeTimeout, timeUpMessage(c.problem.Solution()))
	return true
}

// SetAnswerText mirrors the player's input while the round is active.
func (c *RoundController) SetAnswerText(text string) {
	if c.state.SubmitEnabled {
		c.state.AnswerText = text
	}
}

// SubmitAnswer evaluates raw against the solution and ends the round.
// Input that does not parse as an integer counts as a wrong answer.
func (c *RoundController) SubmitAnswer(raw string) (Outcome, error) {
	if !c.state.SubmitEnabled {
		return OutcomeNone, ErrRoundNotActive
	}

	c.state.AnswerText = raw
	solution := c.problem.Solution()
	if n, ok := ParseAnswer(raw); ok && n == solution {
		c.endRound(OutcomeCorrect, MessageCorrect)
	} else {
		c.endRound(OutcomeWrong, wrongMessage(solution))
	}
	return c.outcome, nil
}

// Difficulty returns the active difficulty, or DifficultyNone before a game.
func (c *RoundController) Difficulty() Difficulty {
	return c.difficulty
}

// Preset returns the bounds of the active difficulty.
func (c *RoundController) Preset() Preset {
	return c.preset
}

// Problem returns the current problem; false before a difficulty is chosen.
func (c *RoundController) Problem() (Problem, bool) {
	return c.problem, c.difficulty != DifficultyNone
}

// State returns a copy of the round state.
func (c *RoundController) State() RoundState {
	return c.state
}

// Outcome returns how the last round ended, or OutcomeNone while it runs.
func (c *RoundController) Outcome() Outcome {
	return c.outcome
}

// Phase derives the lifecycle position from the state flags.
func (c *RoundController) Phase() Phase {
	switch {
	case c.difficulty == DifficultyNone:
		return PhaseNoDifficulty
	case c.state.SubmitEnabled:
		return PhaseRoundActive
	default:
		return PhaseRoundEnded
	}
}

func (c *RoundController) startRound() {
	c.problem = NewProblem(c.src, c.preset.UpperBound)
	c.state = RoundState{
		TimeLeftSec:   c.preset.TimeLimitSec,
		SubmitEnabled: true,
	}
	c.outcome = OutcomeNone
	c.countdown.Start()
}

func (c *RoundController) endRound(outcome Outcome, message string) {
	c.countdown.Stop()
	c.state.Message = message
	c.state.SubmitEnabled = false
	c.state.NewGameEnabled = true
	c.outcome = outcome
}
