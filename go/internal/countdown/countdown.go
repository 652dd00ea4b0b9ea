// Package countdown drives a round timer with a one-second ticker.
//
// A Countdown never mutates game state itself. Each armed ticker is tagged
// with a generation number that is handed to the tick callback; the owner
// asks IsCurrent before applying the tick, so a tick that was already in
// flight when the countdown was re-armed or stopped is discarded.
package countdown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// TickFunc is invoked from the ticker goroutine once per interval.
type TickFunc func(generation uint64)

// DefaultInterval is the spacing between ticks.
const DefaultInterval = time.Second

// Countdown arms at most one ticker at a time.
type Countdown struct {
	clock    Clock
	interval time.Duration
	onTick   TickFunc
	name     string

	mu         sync.Mutex
	ticker     clockwork.Ticker
	done       chan struct{}
	generation uint64
	armedAt    time.Time
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(c *Countdown) {
		c.interval = d
	}
}

// WithName labels the countdown in logs, usually with the owning session ID.
func WithName(name string) Option {
	return func(c *Countdown) {
		c.name = name
	}
}

// New returns a disarmed countdown that calls onTick while armed.
func New(clock Clock, onTick TickFunc, opts ...Option) *Countdown {
	c := &Countdown{
		clock:    clock,
		interval: DefaultInterval,
		onTick:   onTick,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start arms a new ticker, cancelling any ticker that is already armed.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ticker != nil {
		c.disarm()
		log.Debug().Str("countdown", c.name).Msg("replaced armed countdown")
	}

	c.generation++
	c.ticker = c.clock.NewTicker(c.interval)
	c.done = make(chan struct{})
	c.armedAt = c.clock.Now()

	go c.run(c.generation, c.ticker, c.done)

	log.Debug().
		Str("countdown", c.name).
		Uint64("generation", c.generation).
		Dur("interval", c.interval).
		Msg("armed countdown")
}

// Stop disarms the current ticker. It is safe to call when nothing is armed
// and from inside the tick callback.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ticker == nil {
		return
	}
	c.disarm()
	c.generation++

	log.Debug().
		Str("countdown", c.name).
		Dur("armed_for", c.clock.Now().Sub(c.armedAt)).
		Msg("stopped countdown")
}

// IsCurrent reports whether a tick tagged with generation belongs to the
// ticker that is armed right now.
func (c *Countdown) IsCurrent(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticker != nil && c.generation == generation
}

// Armed reports whether a ticker is running.
func (c *Countdown) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticker != nil
}

// disarm must be called with mu held.
func (c *Countdown) disarm() {
	stopAndDrainTicker(c.ticker)
	close(c.done)
	c.ticker = nil
	c.done = nil
}

func (c *Countdown) run(generation uint64, t clockwork.Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.Chan():
			select {
			case <-done:
				return
			default:
			}
			c.onTick(generation)
		}
	}
}

// stopAndDrainTicker stops a ticker and drains a pending tick so a stopped
// ticker never delivers late.
func stopAndDrainTicker(t clockwork.Ticker) {
	t.Stop()
	select {
	case <-t.Chan():
	default:
	}
}
