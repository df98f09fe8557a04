// Package playback contains the cooperating state machines that decide,
// moment to moment, what should be playing, for how long, and what happens
// next: Player, SequencePlayer, MediaPlayer, and QuestionManager. Control
// flows downward by direct calls and returns upward through per-owner
// notification buses; no component holds a reference to its parent.
//
// The components are not individually goroutine-safe. The Player
// serializes every entry point (public surface, periodic ticks, stage
// reports, gesture input) behind one lock, which is also why asynchronous
// callbacks re-check component state on entry: a tick or ended report that
// was already in flight when the component paused or stopped must find
// itself stale and do nothing.
package playback

import "time"

// Clock abstracts wall time so the state machines are testable without
// real timers.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

type playState int

const (
	clockIdle playState = iota
	clockRunning
	clockPaused
)

// PlayClock tracks cumulative playing time across pause/resume cycles.
// It is the play-time source for media items that cannot report their
// own position. Elapsed is a pure function of the stored timestamps and
// the supplied wall-clock time, so repeated pause/resume cycles cannot
// drift.
type PlayClock struct {
	state    playState
	since    time.Time
	pausedAt time.Time
}

// Start begins or resumes the clock. Resuming folds the elapsed pause
// duration into the start timestamp so that Elapsed only ever counts
// playing time. Starting a running clock is a no-op.
func (c *PlayClock) Start(now time.Time) {
	switch c.state {
	case clockIdle:
		c.since = now
	case clockPaused:
		c.since = c.since.Add(now.Sub(c.pausedAt))
		c.pausedAt = time.Time{}
	case clockRunning:
		return
	}
	c.state = clockRunning
}

// Pause freezes the clock. Pausing a non-running clock is a no-op.
func (c *PlayClock) Pause(now time.Time) {
	if c.state != clockRunning {
		return
	}
	c.pausedAt = now
	c.state = clockPaused
}

// Reset returns the clock to idle with zero elapsed time.
func (c *PlayClock) Reset() {
	*c = PlayClock{}
}

// Elapsed returns the cumulative playing time at the given instant.
// Paused time never counts.
func (c *PlayClock) Elapsed(now time.Time) time.Duration {
	switch c.state {
	case clockRunning:
		return now.Sub(c.since)
	case clockPaused:
		return c.pausedAt.Sub(c.since)
	default:
		return 0
	}
}

// Running reports whether the clock is advancing.
func (c *PlayClock) Running() bool { return c.state == clockRunning }

// Paused reports whether the clock is frozen mid-play.
func (c *PlayClock) Paused() bool { return c.state == clockPaused }
