package media

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/model"
)

// Built-in media kind tags.
const (
	KindVideo   = "video"
	KindAudio   = "audio"
	KindImage   = "image"
	KindIframe  = "iframe"
	KindYouTube = "youtube"
	KindText    = "text"
)

// posTracker derives a playback position from stage position reports:
// the last reported position, extrapolated with wall time while playing.
type posTracker struct {
	mu      sync.Mutex
	pos     time.Duration
	at      time.Time
	running bool
	now     func() time.Time
}

func (t *posTracker) report(pos time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pos = pos
	t.at = t.clock()()
	t.running = true
}

func (t *posTracker) setRunning(running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running && !running {
		// Freeze at the extrapolated position.
		t.pos += t.clock()().Sub(t.at)
	}
	t.at = t.clock()()
	t.running = running
}

func (t *posTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pos = 0
	t.running = false
}

func (t *posTracker) playTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return t.pos + t.clock()().Sub(t.at)
	}
	return t.pos
}

func (t *posTracker) clock() func() time.Time {
	if t.now != nil {
		return t.now
	}
	return time.Now
}

// trackedItem is a stage item whose position reports feed a posTracker,
// giving it the PlayTimer capability.
type trackedItem struct {
	stageItem
	tracker posTracker
}

func (v *trackedItem) Play() {
	v.stageItem.Play()
	v.tracker.setRunning(v.IsPlaying())
}

func (v *trackedItem) Pause() {
	v.stageItem.Pause()
	v.tracker.setRunning(v.IsPlaying())
}

func (v *trackedItem) Stop() {
	v.stageItem.Stop()
	v.tracker.reset()
}

func (v *trackedItem) ReportPosition(pos time.Duration) {
	v.tracker.report(pos)
}

func (v *trackedItem) ReportEnded() {
	v.stageItem.ReportEnded()
	v.tracker.setRunning(false)
}

// PlayTime reports the stage-observed playback position.
func (v *trackedItem) PlayTime() time.Duration {
	return v.tracker.playTime()
}

// Video plays a video element on the stage and reports its own position.
type Video struct{ trackedItem }

// Audio plays an audio element on the stage and reports its own position.
type Audio struct{ trackedItem }

// YouTube embeds a YouTube player on the stage; position reports come
// from the embedded player's API.
type YouTube struct{ trackedItem }

// Image shows a still image. It never ends naturally and never reports a
// position; its declared duration is the only thing that bounds it.
type Image struct{ stageItem }

// Iframe embeds an external page. Like Image, it is endless.
type Iframe struct{ stageItem }

// Text renders a block of text. Endless.
type Text struct{ stageItem }

// NewVideo creates a video item.
func NewVideo(m *model.Media, stage Stage, log zerolog.Logger) Item {
	return &Video{trackedItem{stageItem: newStageItem(m, stage, log)}}
}

// NewAudio creates an audio item.
func NewAudio(m *model.Media, stage Stage, log zerolog.Logger) Item {
	return &Audio{trackedItem{stageItem: newStageItem(m, stage, log)}}
}

// NewYouTube creates a YouTube item.
func NewYouTube(m *model.Media, stage Stage, log zerolog.Logger) Item {
	return &YouTube{trackedItem{stageItem: newStageItem(m, stage, log)}}
}

// NewImage creates an image item.
func NewImage(m *model.Media, stage Stage, log zerolog.Logger) Item {
	return &Image{newStageItem(m, stage, log)}
}

// NewIframe creates an iframe item.
func NewIframe(m *model.Media, stage Stage, log zerolog.Logger) Item {
	return &Iframe{newStageItem(m, stage, log)}
}

// NewText creates a text item.
func NewText(m *model.Media, stage Stage, log zerolog.Logger) Item {
	return &Text{newStageItem(m, stage, log)}
}
