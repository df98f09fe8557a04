package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/media"
	"github.com/mverkaik/stagehand/internal/model"
	"github.com/mverkaik/stagehand/internal/pubsub"
)

var testLog = zerolog.Nop()

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeStage records every directive it receives.
type fakeStage struct {
	calls    []string
	overlays map[int]*model.Overlay
	question *model.Question
	frameURL string
}

func newFakeStage() *fakeStage {
	return &fakeStage{overlays: make(map[int]*model.Overlay)}
}

func (s *fakeStage) record(call string) { s.calls = append(s.calls, call) }

func (s *fakeStage) PreloadMedia(m *model.Media) { s.record("preload") }
func (s *fakeStage) PlayMedia(m *model.Media)    { s.record("play") }
func (s *fakeStage) PauseMedia(mediaID int)      { s.record("pause") }
func (s *fakeStage) StopMedia(mediaID int)       { s.record("stop") }

func (s *fakeStage) ShowOverlay(idx int, o *model.Overlay) {
	s.overlays[idx] = o
	s.record("showOverlay")
}

func (s *fakeStage) HideOverlay(idx int) {
	delete(s.overlays, idx)
	s.record("hideOverlay")
}

func (s *fakeStage) ShowQuestion(q *model.Question) {
	s.question = q
	s.record("showQuestion")
}

func (s *fakeStage) HideQuestion() {
	s.question = nil
	s.record("hideQuestion")
}

func (s *fakeStage) ShowFrame(url string) {
	s.frameURL = url
	s.record("showFrame")
}

func (s *fakeStage) HideFrame() {
	s.frameURL = ""
	s.record("hideFrame")
}

func (s *fakeStage) countCalls(name string) int {
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

// fakeItem is a minimal media item that never ends on its own.
type fakeItem struct {
	m   *model.Media
	bus *pubsub.Bus

	state      media.State
	playCalls  int
	pauseCalls int
	stopCalls  int
}

func newFakeItem(m *model.Media) *fakeItem {
	return &fakeItem{m: m, bus: pubsub.New(), state: media.StateStopped}
}

func (f *fakeItem) Model() *model.Media { return f.m }
func (f *fakeItem) Events() *pubsub.Bus { return f.bus }

func (f *fakeItem) Play() {
	f.playCalls++
	f.state = media.StatePlaying
}

func (f *fakeItem) Pause() {
	f.pauseCalls++
	f.state = media.StatePaused
}

func (f *fakeItem) Stop() {
	f.stopCalls++
	f.state = media.StateStopped
}

func (f *fakeItem) IsPlaying() bool { return f.state == media.StatePlaying }
func (f *fakeItem) IsPaused() bool  { return f.state == media.StatePaused }
func (f *fakeItem) IsStopped() bool { return f.state == media.StateStopped }

func (f *fakeItem) Preload(ctx context.Context) error { return nil }

// end simulates the item's own "nothing more to play" notification.
func (f *fakeItem) end() {
	f.state = media.StatePaused
	f.bus.Publish(media.TopicEnded, f.m.ID)
}

// timedItem is a fakeItem that reports its own play time.
type timedItem struct {
	*fakeItem
	playTime time.Duration
}

func newTimedItem(m *model.Media) *timedItem {
	return &timedItem{fakeItem: newFakeItem(m)}
}

func (t *timedItem) PlayTime() time.Duration { return t.playTime }

// newTestMediaPlayer wires a media player with a manual clock and no
// automatic ticker; tests drive Update directly.
func newTestMediaPlayer(t interface{ Helper() }) (*MediaPlayer, *fakeStage, *fakeClock, *VariableStore) {
	t.Helper()
	stage := newFakeStage()
	clock := newFakeClock()
	vars := NewVariableStore(pubsub.New(), testLog)
	mp := NewMediaPlayer(MediaPlayerConfig{
		Stage:        stage,
		Vars:         vars,
		Log:          testLog,
		Clock:        clock,
		TickInterval: -1,
	})
	return mp, stage, clock, vars
}
