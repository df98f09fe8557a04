package playback

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/events"
	"github.com/mverkaik/stagehand/internal/media"
	"github.com/mverkaik/stagehand/internal/model"
	"github.com/mverkaik/stagehand/internal/pubsub"
)

// State is the lifecycle state shared by the playback state machines.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Notification topics published on a MediaPlayer's bus.
const (
	// TopicMediaEnded fires when the bound media item is done and
	// declares no branch of its own: the owning sequence player advances.
	TopicMediaEnded = "mediaplayer.ended"
	// TopicNavigate requests a subject change. Data: subject id (string).
	TopicNavigate = "mediaplayer.navigate"
	// TopicOpenFrame requests a dismissible external-URL frame over the
	// presentation. Data: the URL (string).
	TopicOpenFrame = "mediaplayer.frame"
)

// DefaultTickInterval is the period of the media player's update timer.
const DefaultTickInterval = 50 * time.Millisecond

// MediaPlayerConfig carries the collaborators a MediaPlayer needs.
type MediaPlayerConfig struct {
	Stage media.Stage
	Vars  *VariableStore
	Log   zerolog.Logger

	// Clock defaults to the system clock.
	Clock Clock
	// TickInterval defaults to DefaultTickInterval. A negative value
	// disables the automatic ticker; tests drive Update directly.
	TickInterval time.Duration
	// Gate, when set, is taken around each periodic tick so timer ticks
	// serialize with the owning player's entry points.
	Gate sync.Locker
}

// MediaPlayer owns exactly one active media item at a time. It advances a
// periodic timer, computes elapsed play time, starts and stops time-boxed
// overlays, drives the question manager, and detects duration or playback
// end.
type MediaPlayer struct {
	stage     media.Stage
	vars      *VariableStore
	clock     Clock
	log       zerolog.Logger
	bus       *pubsub.Bus
	questions *QuestionManager
	ticker    *Ticker

	state State
	model *model.Media
	item  media.Item

	itemEndedTok pubsub.Token

	// playTime reports elapsed play time from the item's own tracker
	// when it has one, otherwise from playClock.
	playTime  func() time.Duration
	playClock PlayClock

	// overlays, sorted ascending by start time with declaration order
	// preserved on ties. nextOverlay scans forward and never rewinds
	// within one cycle.
	overlays    []*model.Overlay
	nextOverlay int
	active      map[int]*model.Overlay
	clicked     map[int]bool

	ended                 bool
	wasPlayingBeforePause bool
	totalPlayed           time.Duration
}

// NewMediaPlayer creates a stopped media player.
func NewMediaPlayer(cfg MediaPlayerConfig) *MediaPlayer {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	mp := &MediaPlayer{
		stage:     cfg.Stage,
		vars:      cfg.Vars,
		clock:     cfg.Clock,
		log:       cfg.Log.With().Str("component", "mediaplayer").Logger(),
		bus:       pubsub.New(),
		questions: NewQuestionManager(cfg.Stage, cfg.Vars, cfg.Log),
		state:     StateStopped,
		active:    make(map[int]*model.Overlay),
		clicked:   make(map[int]bool),
	}

	if cfg.TickInterval > 0 {
		tick := mp.Update
		if cfg.Gate != nil {
			gate := cfg.Gate
			tick = func() {
				gate.Lock()
				defer gate.Unlock()
				mp.Update()
			}
		}
		mp.ticker = NewTicker(cfg.TickInterval, tick)
	}

	return mp
}

// Events is the media player's notification bus.
func (mp *MediaPlayer) Events() *pubsub.Bus { return mp.bus }

// Questions exposes the question manager for answer routing.
func (mp *MediaPlayer) Questions() *QuestionManager { return mp.questions }

// State returns the current lifecycle state.
func (mp *MediaPlayer) State() State { return mp.state }

// Play binds and plays a media item, or resumes the current one when item
// is nil. Playing while already playing is a warned no-op.
func (mp *MediaPlayer) Play(item media.Item) {
	if item != nil {
		mp.use(item)
	}

	switch mp.state {
	case StatePlaying:
		mp.log.Warn().Msg("play requested while already playing")
		return
	case StatePaused:
		mp.resume()
	case StateStopped:
		if mp.item == nil {
			mp.log.Warn().Msg("play requested with no media item bound")
			return
		}
		mp.start()
	}
}

// use rebinds the player to a new item, resetting all runtime state.
func (mp *MediaPlayer) use(item media.Item) {
	mp.reset()

	mp.item = item
	mp.model = item.Model()
	mp.itemEndedTok = item.Events().Subscribe(media.TopicEnded, mp.onItemEnded)

	if pt, ok := item.(media.PlayTimer); ok {
		mp.playTime = pt.PlayTime
	} else {
		mp.playTime = func() time.Duration { return mp.playClock.Elapsed(mp.clock.Now()) }
	}

	mp.overlays = make([]*model.Overlay, len(mp.model.Overlays))
	copy(mp.overlays, mp.model.Overlays)
	sort.SliceStable(mp.overlays, func(i, j int) bool {
		return mp.overlays[i].StartTime < mp.overlays[j].StartTime
	})

	mp.questions.Use(mp.model.Questions)
}

func (mp *MediaPlayer) start() {
	mp.state = StatePlaying
	mp.playClock.Start(mp.clock.Now())
	mp.item.Play()
	mp.startTicker()
	mp.emit("media.started", mp.mediaFields())
}

func (mp *MediaPlayer) resume() {
	mp.state = StatePlaying
	mp.playClock.Start(mp.clock.Now())
	if mp.wasPlayingBeforePause {
		mp.item.Play()
	}
	mp.startTicker()
	mp.emit("media.resumed", mp.mediaFields())
}

// Pause freezes playback. Overlay and question timing is frozen, not
// extrapolated, while paused: the update timer stops synchronously and
// the play clock holds its value.
func (mp *MediaPlayer) Pause() {
	if mp.state != StatePlaying {
		mp.log.Warn().Str("state", string(mp.state)).Msg("pause requested while not playing")
		return
	}

	// The item may already be intrinsically paused (buffering, natural
	// end); remember whether resume needs to re-invoke play on it.
	mp.wasPlayingBeforePause = mp.item.IsPlaying()
	if mp.wasPlayingBeforePause {
		mp.item.Pause()
	}

	mp.playClock.Pause(mp.clock.Now())
	mp.stopTicker()
	mp.state = StatePaused
	mp.emit("media.paused", mp.mediaFields())
}

// Stop tears the player down to a clean slate.
func (mp *MediaPlayer) Stop() {
	if mp.state == StateStopped && mp.item == nil {
		return
	}
	mp.reset()
}

// reset performs the full synchronous teardown: overlays destroyed,
// question manager cleared, end-notification unsubscribed, timestamps and
// flags zeroed. By the time it returns the player is visually and
// logically inert.
func (mp *MediaPlayer) reset() {
	mp.stopTicker()

	for idx := range mp.active {
		mp.stage.HideOverlay(idx)
	}
	mp.active = make(map[int]*model.Overlay)
	mp.clicked = make(map[int]bool)
	mp.overlays = nil
	mp.nextOverlay = 0

	mp.questions.Reset()

	if mp.item != nil {
		mp.item.Events().Unsubscribe(media.TopicEnded, mp.itemEndedTok)
		mp.item.Stop()
	}
	mp.item = nil
	mp.model = nil
	mp.playTime = nil

	mp.playClock.Reset()
	mp.ended = false
	mp.wasPlayingBeforePause = false
	mp.totalPlayed = 0
	mp.state = StateStopped
}

// PlayTime returns the elapsed play time of the current cycle.
func (mp *MediaPlayer) PlayTime() time.Duration {
	if mp.playTime == nil {
		return 0
	}
	return mp.playTime()
}

// TotalPlayTime returns cumulative play time across repeat cycles.
func (mp *MediaPlayer) TotalPlayTime() time.Duration {
	return mp.totalPlayed + mp.PlayTime()
}

// Update is the periodic tick body: overlay reconciliation, then question
// update, then the declared-duration check. The order is load-bearing: a
// duration-triggered end must not suppress an overlay due at the same
// tick. A tick that raced a pause or stop finds the state changed and
// does nothing.
func (mp *MediaPlayer) Update() {
	if mp.state != StatePlaying || mp.ended {
		return
	}

	// Overlays and questions live on the cumulative timeline, which a
	// repeating item does not rewind; the declared duration bounds one
	// playback cycle.
	cycle := mp.PlayTime()
	mp.updateOverlays(mp.totalPlayed + cycle)
	mp.questions.Update(mp.totalPlayed + cycle)

	if mp.model.Duration > 0 && cycle >= ms(mp.model.Duration) {
		mp.handleEnded()
	}
}

func (mp *MediaPlayer) updateOverlays(now time.Duration) {
	for idx, o := range mp.active {
		if end := o.EndTime(); end != 0 && now >= ms(end) {
			mp.stage.HideOverlay(idx)
			delete(mp.active, idx)
			delete(mp.clicked, idx)
			mp.emit("overlay.hidden", map[string]interface{}{"overlay": idx})
		}
	}

	// The list is sorted by start time, so the scan stops at the first
	// overlay that is not yet due.
	for mp.nextOverlay < len(mp.overlays) {
		o := mp.overlays[mp.nextOverlay]
		if ms(o.StartTime) > now {
			break
		}
		idx := mp.nextOverlay
		mp.active[idx] = o
		mp.clicked[idx] = false
		mp.stage.ShowOverlay(idx, o)
		mp.emit("overlay.shown", map[string]interface{}{"overlay": idx})
		mp.nextOverlay++
	}
}

// onItemEnded handles the media item's own "nothing more to play"
// notification.
func (mp *MediaPlayer) onItemEnded(interface{}) {
	if mp.state != StatePlaying || mp.ended {
		return
	}
	mp.handleEnded()
}

// handleEnded runs end-of-media handling: repeat restarts the item
// without touching the surrounding timeline; a declared branch requests
// navigation; otherwise the ended notification lets the owner advance.
func (mp *MediaPlayer) handleEnded() {
	if mp.ended {
		return
	}

	if mp.model.Repeat {
		// Repeat affects only the media item: overlays, questions, and
		// cumulative totals carry on. The finished cycle is folded into
		// totalPlayed and the per-cycle clock restarts from zero, for
		// both play-time sources.
		mp.totalPlayed += mp.PlayTime()
		mp.item.Stop()
		mp.playClock.Reset()
		mp.playClock.Start(mp.clock.Now())
		mp.item.Play()
		mp.emit("media.repeat", mp.mediaFields())
		return
	}

	mp.ended = true
	mp.item.Pause()
	mp.stopTicker()
	mp.emit("media.ended", mp.mediaFields())

	if len(mp.model.LeadsTo) > 0 {
		if target, ok := ResolveLeadsTo(mp.model.LeadsTo, mp.vars, mp.log); ok {
			mp.bus.Publish(TopicNavigate, target)
			return
		}
	}
	mp.bus.Publish(TopicMediaEnded, nil)
}

// HandleOverlayClick resolves a click on the overlay at idx (the index
// assigned when the overlay was shown). Each overlay fires at most once
// per armed period; clicks while paused are ignored and the overlay stays
// armed.
func (mp *MediaPlayer) HandleOverlayClick(idx int) {
	o, shown := mp.active[idx]
	if !shown {
		mp.log.Warn().Int("overlay", idx).Msg("click on overlay that is not displayed")
		return
	}
	if mp.clicked[idx] {
		return
	}
	if mp.state == StatePaused {
		// Clicking overlays has no effect while paused; the one-shot
		// stays armed.
		return
	}

	mp.clicked[idx] = true
	mp.vars.ApplyAll(o.Modifiers)
	mp.emit("overlay.clicked", map[string]interface{}{"overlay": idx})

	target, ok := ResolveLeadsTo(o.LeadsTo, mp.vars, mp.log)
	if !ok {
		return
	}
	if url, isFrame := model.FrameURL(target); isFrame {
		mp.bus.Publish(TopicOpenFrame, url)
		return
	}
	mp.bus.Publish(TopicNavigate, target)
}

// ActiveOverlays returns the indices of currently displayed overlays.
func (mp *MediaPlayer) ActiveOverlays() []int {
	out := make([]int, 0, len(mp.active))
	for idx := range mp.active {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func (mp *MediaPlayer) startTicker() {
	if mp.ticker != nil {
		mp.ticker.Start()
	}
}

func (mp *MediaPlayer) stopTicker() {
	if mp.ticker != nil {
		mp.ticker.Stop()
	}
}

func (mp *MediaPlayer) mediaFields() map[string]interface{} {
	if mp.model == nil {
		return nil
	}
	return map[string]interface{}{
		"media_id": mp.model.ID,
		"kind":     mp.model.Kind,
	}
}

func (mp *MediaPlayer) emit(name string, fields map[string]interface{}) {
	if _, err := events.Emit("info", name, "", fields); err != nil {
		mp.log.Error().Err(err).Str("event", name).Msg("failed to emit event")
	}
}
