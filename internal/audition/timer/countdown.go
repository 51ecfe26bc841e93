// Package timer implements the second-granularity countdown used for both the
// per-question limit and the global audition clock.
//
// A Countdown is not safe for concurrent use; it is owned by the goroutine that
// ticks it.
package timer

import "fmt"

type Countdown struct {
	initial   int
	remaining int
	running   bool
}

func New(initialSeconds int) *Countdown {
	if initialSeconds < 0 {
		initialSeconds = 0
	}
	return &Countdown{initial: initialSeconds, remaining: initialSeconds}
}

// Start is idempotent. An expired countdown does not start.
func (c *Countdown) Start() {
	if c.remaining <= 0 {
		return
	}
	c.running = true
}

// Stop halts without touching the remaining time.
func (c *Countdown) Stop() { c.running = false }

// Reset halts and restores the original initial duration.
func (c *Countdown) Reset() {
	c.running = false
	c.remaining = c.initial
}

// SetInitial replaces the original duration and resets to it.
func (c *Countdown) SetInitial(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	c.initial = seconds
	c.Reset()
}

// Tick decrements by one second while running. It reports whether this tick
// brought the countdown to zero; the countdown then stops itself.
func (c *Countdown) Tick() bool {
	if !c.running || c.remaining <= 0 {
		return false
	}
	c.remaining--
	if c.remaining == 0 {
		c.running = false
		return true
	}
	return false
}

func (c *Countdown) Remaining() int  { return c.remaining }
func (c *Countdown) Initial() int    { return c.initial }
func (c *Countdown) Running() bool   { return c.running }
func (c *Countdown) IsExpired() bool { return c.remaining == 0 }

// Elapsed is the number of seconds consumed since the last reset.
func (c *Countdown) Elapsed() int { return c.initial - c.remaining }

// Format renders the remaining time as MM:SS.
func (c *Countdown) Format() string { return FormatSeconds(c.remaining) }

func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
