package countdown

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func waitForTickers(t *testing.T, fc *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, n); err != nil {
		t.Fatalf("waiting for %d tickers: %v", n, err)
	}
}

func receiveTick(t *testing.T, ticks <-chan uint64) uint64 {
	t.Helper()
	select {
	case gen := <-ticks:
		return gen
	case <-time.After(2 * time.Second):
		t.Fatal("no tick delivered")
		return 0
	}
}

func TestCountdown_TicksEveryInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ticks := make(chan uint64, 10)
	c := New(fc, func(gen uint64) { ticks <- gen })

	c.Start()
	defer c.Stop()
	waitForTickers(t, fc, 1)

	for i := 0; i < 3; i++ {
		fc.Advance(time.Second)
		gen := receiveTick(t, ticks)
		if !c.IsCurrent(gen) {
			t.Fatalf("tick %d carried stale generation %d", i, gen)
		}
	}
}

func TestCountdown_StopDisarms(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ticks := make(chan uint64, 10)
	c := New(fc, func(gen uint64) { ticks <- gen })

	c.Start()
	waitForTickers(t, fc, 1)
	fc.Advance(time.Second)
	gen := receiveTick(t, ticks)

	c.Stop()
	if c.Armed() {
		t.Fatal("Armed() = true after Stop")
	}
	if c.IsCurrent(gen) {
		t.Error("generation still current after Stop")
	}

	waitForTickers(t, fc, 0)
	fc.Advance(5 * time.Second)
	select {
	case gen := <-ticks:
		t.Fatalf("stopped countdown delivered tick with generation %d", gen)
	default:
	}

	// Stopping twice is harmless.
	c.Stop()
}

func TestCountdown_StartReplacesArmedTicker(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ticks := make(chan uint64, 10)
	c := New(fc, func(gen uint64) { ticks <- gen })

	c.Start()
	waitForTickers(t, fc, 1)
	fc.Advance(time.Second)
	first := receiveTick(t, ticks)

	c.Start()
	defer c.Stop()
	if c.IsCurrent(first) {
		t.Fatal("first generation still current after re-arming")
	}

	// Only the replacement ticker may remain registered with the clock.
	waitForTickers(t, fc, 1)
	fc.Advance(time.Second)
	second := receiveTick(t, ticks)
	if second == first {
		t.Fatalf("re-armed countdown reused generation %d", first)
	}
	if !c.IsCurrent(second) {
		t.Errorf("generation %d not current", second)
	}

	select {
	case extra := <-ticks:
		t.Errorf("unexpected extra tick with generation %d", extra)
	default:
	}
}

func TestCountdown_StopFromCallback(t *testing.T) {
	fc := clockwork.NewFakeClock()
	stopped := make(chan struct{})
	var c *Countdown
	c = New(fc, func(gen uint64) {
		c.Stop()
		close(stopped)
	})

	c.Start()
	waitForTickers(t, fc, 1)
	fc.Advance(time.Second)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not run")
	}
	if c.Armed() {
		t.Error("Armed() = true after Stop from callback")
	}
}

func TestCountdown_WithInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ticks := make(chan uint64, 10)
	c := New(fc, func(gen uint64) { ticks <- gen }, WithInterval(500*time.Millisecond), WithName("test"))

	c.Start()
	defer c.Stop()
	waitForTickers(t, fc, 1)

	fc.Advance(500 * time.Millisecond)
	receiveTick(t, ticks)
}
