package playback

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/events"
	"github.com/mverkaik/stagehand/internal/media"
	"github.com/mverkaik/stagehand/internal/model"
	"github.com/mverkaik/stagehand/internal/pubsub"
)

// Topics published on the player's public bus.
const (
	// TopicPlayerEnded fires when the running subject finishes with no
	// branch to follow. Data: nil.
	TopicPlayerEnded = "player.ended"
	// TopicSubjectPlaying fires when a subject starts. Data: subject id.
	TopicSubjectPlaying = "subject.playing"
	// TopicSwipe fires when a swipe gesture resolves to a navigation.
	// Data: the swipe direction (string).
	TopicSwipe = "player.swipe"
)

// PlayerConfig carries everything a Player needs at construction.
type PlayerConfig struct {
	Playlist *model.Playlist
	Stage    media.Stage
	Registry *media.Registry
	Log      zerolog.Logger

	// Clock defaults to the system clock.
	Clock Clock
	// TickInterval is passed to the media player; zero means the
	// default, negative disables the timer for tests.
	TickInterval time.Duration
	// Rand, when set, seeds random-order sequences deterministically.
	Rand *rand.Rand
}

// Player is the root orchestrator. It owns the variable store, the
// sequence player, and the pre-constructed media items; it interprets
// branching rules and funnels every navigation request, programmatic or
// gesture-driven, through a single location token.
//
// All public entry points serialize on one mutex, which the media
// player's tick timer also takes, so at most one callback chain runs at
// a time. Internal components are not individually goroutine-safe and
// rely on that serialization.
type Player struct {
	mu sync.Mutex

	playlist *model.Playlist
	stage    media.Stage
	log      zerolog.Logger
	bus      *pubsub.Bus
	vars     *VariableStore

	sequencePlayer *SequencePlayer
	mediaPlayer    *MediaPlayer

	// items holds one pre-constructed media item per model, keyed by
	// the model's id. Items are built eagerly so subject transitions
	// never wait on construction.
	items map[int]media.Item

	state          State
	location       string
	history        []string
	currentSubject *model.Subject

	frameOpen bool
	frameURL  string
}

// NewPlayer constructs a player for the given playlist. Every media item
// in the document is instantiated up front and the playlist's initial
// variable modifiers are applied. An item whose kind is not registered
// is reported as an error; the player is still usable and skips the
// broken item at play time.
func NewPlayer(cfg PlayerConfig) (*Player, error) {
	if cfg.Playlist == nil {
		return nil, fmt.Errorf("player: playlist is required")
	}
	if cfg.Stage == nil {
		return nil, fmt.Errorf("player: stage is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("player: media registry is required")
	}

	log := cfg.Log.With().Str("component", "player").Logger()

	p := &Player{
		playlist: cfg.Playlist,
		stage:    cfg.Stage,
		log:      log,
		bus:      pubsub.New(),
		items:    make(map[int]media.Item, len(cfg.Playlist.Media)),
		state:    StateStopped,
	}
	p.vars = NewVariableStore(p.bus, log)

	for _, m := range cfg.Playlist.Media {
		item, err := cfg.Registry.New(m, cfg.Stage, log)
		if err != nil {
			log.Error().Err(err).Int("media_id", m.ID).Str("kind", m.Kind).
				Msg("cannot construct media item")
			continue
		}
		p.items[m.ID] = item
	}

	p.mediaPlayer = NewMediaPlayer(MediaPlayerConfig{
		Stage:        cfg.Stage,
		Vars:         p.vars,
		Log:          log,
		Clock:        cfg.Clock,
		TickInterval: cfg.TickInterval,
		Gate:         &p.mu,
	})
	p.sequencePlayer = NewSequencePlayer(p.mediaPlayer, p.buildItem, p.vars, log)
	if cfg.Rand != nil {
		p.sequencePlayer.SetRand(cfg.Rand)
	}

	p.sequencePlayer.Events().Subscribe(TopicSequenceEnded, p.onSequenceEnded)
	p.sequencePlayer.Events().Subscribe(TopicNavigate, p.onNavigate)
	p.sequencePlayer.Events().Subscribe(TopicOpenFrame, p.onOpenFrame)

	p.vars.ApplyAll(cfg.Playlist.Init)

	return p, nil
}

// buildItem resolves a model to its pre-constructed item.
func (p *Player) buildItem(m *model.Media) (media.Item, error) {
	item, ok := p.items[m.ID]
	if !ok {
		return nil, fmt.Errorf("no media item for id %d (kind %q)", m.ID, m.Kind)
	}
	return item, nil
}

// Events is the player's public notification bus. It carries
// TopicPlayerEnded, TopicSubjectPlaying, TopicVariableUpdated, and
// TopicSwipe.
func (p *Player) Events() *pubsub.Bus { return p.bus }

// Preload asks every media item to buffer, in document order. A failed
// item is logged and does not block the rest; the first error is
// returned so callers can surface it.
//
// Preload must be called before Play and must not race with playback:
// it deliberately runs without the player's lock so items can complete
// their readiness reports while it waits.
func (p *Player) Preload(ctx context.Context) error {
	var firstErr error
	for _, m := range p.playlist.Media {
		item, ok := p.items[m.ID]
		if !ok {
			continue
		}
		if err := item.Preload(ctx); err != nil {
			p.log.Error().Err(err).Int("media_id", m.ID).Str("kind", m.Kind).
				Msg("media item failed to preload")
			if firstErr == nil {
				firstErr = fmt.Errorf("preload media %d: %w", m.ID, err)
			}
		}
	}
	return firstErr
}

// Play starts the presentation at the first subject, or at the restored
// location when a session was restored, or resumes when paused.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StatePlaying:
		p.log.Warn().Msg("play requested while already playing")
	case StatePaused:
		p.resume()
	case StateStopped:
		p.state = StatePlaying
		p.emit("player.playing", nil)
		target := p.location
		if target == "" {
			target = p.playlist.FirstSubject
		}
		p.requestLocation(target)
	}
}

func (p *Player) resume() {
	p.state = StatePlaying
	if p.frameOpen {
		// A frame was open when the presentation paused; playback stays
		// held until the frame is dismissed.
		p.emit("player.resumed", nil)
		return
	}
	p.sequencePlayer.Play(nil)
	p.emit("player.resumed", nil)
}

// Pause freezes the presentation.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		p.log.Warn().Str("state", string(p.state)).Msg("pause requested while not playing")
		return
	}
	p.state = StatePaused
	if !p.frameOpen {
		p.sequencePlayer.Pause()
	}
	p.emit("player.paused", nil)
}

// Stop performs the full reset: subject cleared, variables back to their
// initial state, location token and history discarded. A subsequent Play
// starts over exactly as on first load.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.state == StateStopped && p.currentSubject == nil {
		return
	}

	p.sequencePlayer.Stop()
	if p.frameOpen {
		p.stage.HideFrame()
		p.frameOpen = false
		p.frameURL = ""
	}

	p.currentSubject = nil
	p.location = ""
	p.history = nil

	p.vars.Reset()
	p.vars.ApplyAll(p.playlist.Init)

	p.state = StateStopped
	p.emit("player.stopped", nil)
}

// GoTo navigates to the named subject, or to the previous one when
// target is the back token.
func (p *Player) GoTo(target string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestLocation(target)
}

// requestLocation is the single navigation path: every subject change,
// programmatic or gesture-driven, funnels through the location token so
// history stays consistent.
func (p *Player) requestLocation(target string) {
	if target == model.BackTarget {
		if len(p.history) == 0 {
			p.log.Warn().Msg("back requested with no history")
			return
		}
		prev := p.history[len(p.history)-1]
		p.history = p.history[:len(p.history)-1]
		p.location = prev
		p.playSubject(prev)
		return
	}

	if p.location != "" && p.location != target {
		p.history = append(p.history, p.location)
	}
	p.location = target
	p.playSubject(target)
}

// playSubject tears down the running subject and starts the named one.
// An unknown id is a warned no-op so a dangling branch cannot crash the
// presentation.
func (p *Player) playSubject(id string) {
	subject := p.playlist.Subject(id)
	if subject == nil {
		p.log.Warn().Str("subject", id).Msg("navigation to unknown subject")
		return
	}

	p.sequencePlayer.Stop()
	p.currentSubject = subject
	p.state = StatePlaying

	p.vars.ApplyAll(subject.Modifiers)

	p.emit("subject.playing", map[string]interface{}{"subject": id})
	p.bus.Publish(TopicSubjectPlaying, id)

	p.sequencePlayer.Play(&subject.Sequence)
}

// onSequenceEnded resolves the finished subject's branch rules; with no
// applicable rule the presentation is over.
func (p *Player) onSequenceEnded(interface{}) {
	if p.state != StatePlaying || p.currentSubject == nil {
		return
	}

	if target, ok := ResolveLeadsTo(p.currentSubject.LeadsTo, p.vars, p.log); ok {
		p.requestLocation(target)
		return
	}

	// End of presentation is not the restore path: the location token and
	// history are cleared so the next Play starts over at the first
	// subject.
	p.currentSubject = nil
	p.location = ""
	p.history = nil
	p.state = StateStopped
	p.emit("player.ended", nil)
	p.bus.Publish(TopicPlayerEnded, nil)
}

// onNavigate handles navigation requests bubbling up from media items
// and overlays.
func (p *Player) onNavigate(data interface{}) {
	target, ok := data.(string)
	if !ok {
		return
	}
	p.requestLocation(target)
}

// onOpenFrame pauses the presentation and shows a dismissible frame.
func (p *Player) onOpenFrame(data interface{}) {
	url, ok := data.(string)
	if !ok {
		return
	}
	if p.state == StatePlaying {
		p.sequencePlayer.Pause()
	}
	p.frameOpen = true
	p.frameURL = url
	p.stage.ShowFrame(url)
	p.emit("frame.opened", map[string]interface{}{"url": url})
}

// DismissFrame closes the open frame and resumes playback.
func (p *Player) DismissFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.frameOpen {
		return
	}
	p.stage.HideFrame()
	p.frameOpen = false
	p.frameURL = ""
	p.emit("frame.closed", nil)

	if p.state == StatePlaying {
		p.sequencePlayer.Play(nil)
	}
}

// Swipe translates a gesture on the current subject into navigation via
// its swipe map. Directions without a mapping, or with an unsatisfied
// condition, are ignored.
func (p *Player) Swipe(direction string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentSubject == nil {
		return
	}
	rule, ok := p.currentSubject.Swipe[direction]
	if !ok {
		return
	}
	target, ok := ResolveLeadsTo([]model.LeadsTo{rule}, p.vars, p.log)
	if !ok {
		return
	}

	p.emit("gesture.received", map[string]interface{}{"direction": direction})
	p.bus.Publish(TopicSwipe, direction)
	p.requestLocation(target)
}

// AnswerQuestion routes an answer to the displayed question.
func (p *Player) AnswerQuestion(answer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mediaPlayer.Questions().Answer(answer)
}

// ClickOverlay routes a stage click on the overlay shown at idx.
func (p *Player) ClickOverlay(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mediaPlayer.HandleOverlayClick(idx)
}

// ReportMediaEnded delivers a stage "nothing more to play" report for
// the given media id.
func (p *Player) ReportMediaEnded(mediaID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(mediaID, func(r media.Reporter) { r.ReportEnded() })
}

// ReportMediaPosition delivers a stage playback-position report.
func (p *Player) ReportMediaPosition(mediaID int, position time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(mediaID, func(r media.Reporter) { r.ReportPosition(position) })
}

// ReportMediaFailed delivers a stage load-failure report.
func (p *Player) ReportMediaFailed(mediaID int, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(mediaID, func(r media.Reporter) { r.ReportFailed(reason) })
}

// ReportMediaReady delivers a stage buffering-complete report. It does
// not take the player lock: Preload blocks on readiness and must be able
// to observe the report while it waits.
func (p *Player) ReportMediaReady(mediaID int) {
	p.report(mediaID, func(r media.Reporter) { r.ReportReady() })
}

func (p *Player) report(mediaID int, fn func(media.Reporter)) {
	item, ok := p.items[mediaID]
	if !ok {
		p.log.Warn().Int("media_id", mediaID).Msg("stage report for unknown media")
		return
	}
	r, ok := item.(media.Reporter)
	if !ok {
		p.log.Error().Int("media_id", mediaID).Msg("media item does not accept stage reports")
		return
	}
	fn(r)
}

// GetVariable returns the variable's current value.
func (p *Player) GetVariable(name string) (interface{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vars.Get(name)
}

// CurrentSubject returns the id of the subject now playing, or "".
func (p *Player) CurrentSubject() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentSubject == nil {
		return ""
	}
	return p.currentSubject.ID
}

// Variables returns a snapshot of the variable store.
func (p *Player) Variables() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vars.Snapshot()
}

// IsPlaying reports whether the presentation is running.
func (p *Player) IsPlaying() bool { return p.stateIs(StatePlaying) }

// IsPaused reports whether the presentation is paused.
func (p *Player) IsPaused() bool { return p.stateIs(StatePaused) }

// IsStopped reports whether the presentation is stopped.
func (p *Player) IsStopped() bool { return p.stateIs(StateStopped) }

func (p *Player) stateIs(s State) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == s
}

// Restore installs a previously journaled session: the location token
// and variable values are put back silently so the next Play resumes at
// the recorded subject. Restore must run before Play.
func (p *Player) Restore(sess *RestoredSession) {
	if sess == nil || !sess.Active {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if sess.SubjectID != "" && p.playlist.Subject(sess.SubjectID) == nil {
		p.log.Warn().Str("subject", sess.SubjectID).Msg("restored subject no longer in playlist")
		return
	}

	p.location = sess.SubjectID
	p.vars.Restore(sess.Variables)
	p.emit("session.restored", map[string]interface{}{"subject": sess.SubjectID})
}

func (p *Player) emit(name string, fields map[string]interface{}) {
	if _, err := events.Emit("info", name, "", fields); err != nil {
		p.log.Error().Err(err).Str("event", name).Msg("failed to emit event")
	}
}
