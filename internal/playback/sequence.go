package playback

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/events"
	"github.com/mverkaik/stagehand/internal/media"
	"github.com/mverkaik/stagehand/internal/model"
	"github.com/mverkaik/stagehand/internal/pubsub"
)

// TopicSequenceEnded fires when the sequence player has exhausted its
// item list. Data: nil.
const TopicSequenceEnded = "sequence.ended"

// ItemBuilder turns a media model into a playable item. The player layer
// supplies this so the sequence player stays free of registry and stage
// wiring.
type ItemBuilder func(m *model.Media) (media.Item, error)

// SequencePlayer walks an ordered list of media items, handing each in
// turn to its media player. Advancement is purely event-driven: a step is
// taken only when the current item reports completion. Navigation
// requests from the items pass through unchanged on the sequence
// player's own bus.
type SequencePlayer struct {
	mediaPlayer *MediaPlayer
	build       ItemBuilder
	vars        *VariableStore
	log         zerolog.Logger
	bus         *pubsub.Bus

	// rand drives random sequence order; tests inject a seeded source.
	rand *rand.Rand

	state State
	items []*model.Media
	index int
}

// NewSequencePlayer wires a sequence player on top of a media player.
func NewSequencePlayer(mp *MediaPlayer, build ItemBuilder, vars *VariableStore, log zerolog.Logger) *SequencePlayer {
	sp := &SequencePlayer{
		mediaPlayer: mp,
		build:       build,
		vars:        vars,
		log:         log.With().Str("component", "sequenceplayer").Logger(),
		bus:         pubsub.New(),
		state:       StateStopped,
	}
	mp.Events().Subscribe(TopicMediaEnded, sp.onMediaEnded)
	mp.Events().Subscribe(TopicNavigate, func(data interface{}) {
		sp.bus.Publish(TopicNavigate, data)
	})
	mp.Events().Subscribe(TopicOpenFrame, func(data interface{}) {
		sp.bus.Publish(TopicOpenFrame, data)
	})
	return sp
}

// Events is the sequence player's notification bus.
func (sp *SequencePlayer) Events() *pubsub.Bus { return sp.bus }

// MediaPlayer returns the underlying media player.
func (sp *SequencePlayer) MediaPlayer() *MediaPlayer { return sp.mediaPlayer }

// State returns the current lifecycle state.
func (sp *SequencePlayer) State() State { return sp.state }

// SetRand injects the random source used for random-order sequences.
func (sp *SequencePlayer) SetRand(r *rand.Rand) { sp.rand = r }

// Play starts the given sequence from its first item, or resumes when seq
// is nil and the player is paused. An empty sequence ends immediately.
func (sp *SequencePlayer) Play(seq *model.Sequence) {
	if seq == nil {
		switch sp.state {
		case StatePaused:
			sp.state = StatePlaying
			sp.mediaPlayer.Play(nil)
		case StatePlaying:
			sp.log.Warn().Msg("play requested while already playing")
		default:
			sp.log.Warn().Msg("play requested with no sequence bound")
		}
		return
	}

	sp.use(seq)
	sp.state = StatePlaying
	sp.emit("sequence.started", map[string]interface{}{"items": len(sp.items)})

	sp.playNext()
}

// use flattens the sequence's entries into the play order.
func (sp *SequencePlayer) use(seq *model.Sequence) {
	sp.reset()

	for _, entry := range seq.Items {
		switch {
		case entry.Media != nil:
			sp.items = append(sp.items, entry.Media)
		case entry.Parallel != nil:
			// Parallel groups are not supported; the entry is skipped
			// rather than failing the whole sequence.
			sp.log.Warn().Msg("skipping unsupported parallel group")
		}
	}

	if seq.Order == model.OrderRandom {
		r := sp.rand
		shuffle := func(i, j int) { sp.items[i], sp.items[j] = sp.items[j], sp.items[i] }
		if r != nil {
			r.Shuffle(len(sp.items), shuffle)
		} else {
			rand.Shuffle(len(sp.items), shuffle)
		}
	}
}

// Pause freezes the current item.
func (sp *SequencePlayer) Pause() {
	if sp.state != StatePlaying {
		sp.log.Warn().Str("state", string(sp.state)).Msg("pause requested while not playing")
		return
	}
	sp.state = StatePaused
	sp.mediaPlayer.Pause()
}

// Stop clears the sequence and the media player below it.
func (sp *SequencePlayer) Stop() {
	if sp.state == StateStopped {
		return
	}
	sp.reset()
}

func (sp *SequencePlayer) reset() {
	sp.mediaPlayer.Stop()
	sp.items = nil
	sp.index = 0
	sp.state = StateStopped
}

// playNext is the playback controller: it takes the item at the cursor,
// applies its entry modifiers, starts it, and advances the cursor. The
// next invocation comes only from the current item's ended notification,
// so a pause and resume lands on the same item instead of skipping
// ahead. A build failure logs and moves on so one bad entry does not
// wedge the presentation.
func (sp *SequencePlayer) playNext() {
	if sp.index >= len(sp.items) {
		sp.finish()
		return
	}

	m := sp.items[sp.index]
	sp.index++

	item, err := sp.build(m)
	if err != nil {
		sp.log.Error().Err(err).Int("media_id", m.ID).Str("kind", m.Kind).
			Msg("cannot construct media item, skipping")
		sp.emit("media.failed", map[string]interface{}{"media_id": m.ID, "reason": err.Error()})
		sp.playNext()
		return
	}

	sp.vars.ApplyAll(m.Modifiers)
	sp.mediaPlayer.Play(item)
}

// onMediaEnded advances to the next item when the current one completes
// without a branch of its own.
func (sp *SequencePlayer) onMediaEnded(interface{}) {
	if sp.state != StatePlaying {
		return
	}
	sp.playNext()
}

func (sp *SequencePlayer) finish() {
	sp.state = StateStopped
	sp.emit("sequence.ended", nil)
	sp.bus.Publish(TopicSequenceEnded, nil)
}

func (sp *SequencePlayer) emit(name string, fields map[string]interface{}) {
	if _, err := events.Emit("info", name, "", fields); err != nil {
		sp.log.Error().Err(err).Str("event", name).Msg("failed to emit event")
	}
}
