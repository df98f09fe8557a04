package playback

import (
	"sync"
	"time"
)

// Ticker drives the periodic update loop. It self-reschedules: the next
// tick is armed only after the callback returns, so a long-running tick
// cannot overlap the next one. Stop cancels the pending tick; a tick
// already executing when Stop is called is the callback's problem, which
// is why every tick body re-checks component state first.
type Ticker struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	gen     int
}

// NewTicker creates a stopped ticker with the given period and callback.
func NewTicker(interval time.Duration, fn func()) *Ticker {
	return &Ticker{interval: interval, fn: fn}
}

// Start arms the ticker. Starting a running ticker is a no-op.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running || t.fn == nil {
		return
	}
	t.running = true
	t.gen++
	t.schedule(t.gen)
}

// Stop cancels the pending tick. No new tick fires until Start is called
// again.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Running reports whether the ticker is armed.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// schedule arms the next tick for the given generation. Caller holds mu.
func (t *Ticker) schedule(gen int) {
	t.timer = time.AfterFunc(t.interval, func() {
		t.mu.Lock()
		stale := !t.running || gen != t.gen
		t.mu.Unlock()
		if stale {
			return
		}

		t.fn()

		t.mu.Lock()
		if t.running && gen == t.gen {
			t.schedule(gen)
		}
		t.mu.Unlock()
	})
}
