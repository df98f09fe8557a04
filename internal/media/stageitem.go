package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/model"
	"github.com/mverkaik/stagehand/internal/pubsub"
)

// stageItem is the shared implementation behind every stage-rendered
// media kind. Concrete kinds differ only in whether they ever report a
// natural end and whether they track their own position.
type stageItem struct {
	model *model.Media
	stage Stage
	bus   *pubsub.Bus
	log   zerolog.Logger

	mu     sync.Mutex
	state  State
	ready  chan struct{}
	failed error
}

func newStageItem(m *model.Media, stage Stage, log zerolog.Logger) stageItem {
	return stageItem{
		model: m,
		stage: stage,
		bus:   pubsub.New(),
		log:   log.With().Str("media", m.Kind).Int("media_id", m.ID).Logger(),
		state: StateStopped,
		ready: make(chan struct{}),
	}
}

func (s *stageItem) Model() *model.Media { return s.model }
func (s *stageItem) Events() *pubsub.Bus { return s.bus }

func (s *stageItem) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StatePlaying:
		s.log.Warn().Msg("play requested while already playing")
		return
	case StatePaused:
		s.state = StatePlaying
		s.stage.PlayMedia(s.model)
		return
	}
	s.state = StatePlaying
	s.stage.PlayMedia(s.model)
}

func (s *stageItem) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		s.log.Warn().Str("state", string(s.state)).Msg("pause requested while not playing")
		return
	}
	s.state = StatePaused
	s.stage.PauseMedia(s.model.ID)
}

func (s *stageItem) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return
	}
	s.state = StateStopped
	s.stage.StopMedia(s.model.ID)
}

func (s *stageItem) IsPlaying() bool { return s.inState(StatePlaying) }
func (s *stageItem) IsPaused() bool  { return s.inState(StatePaused) }
func (s *stageItem) IsStopped() bool { return s.inState(StateStopped) }

func (s *stageItem) inState(st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == st
}

// Preload asks the stage to buffer the item and waits for the readiness
// report. Failure or timeout leaves the item usable but unready; the
// caller decides whether to skip it.
func (s *stageItem) Preload(ctx context.Context) error {
	s.stage.PreloadMedia(s.model)

	select {
	case <-s.ready:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.failed
	case <-ctx.Done():
		return fmt.Errorf("media %d (%s) did not become ready: %w", s.model.ID, s.model.Kind, ctx.Err())
	}
}

func (s *stageItem) ReportReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
}

func (s *stageItem) ReportFailed(reason string) {
	s.mu.Lock()
	s.failed = fmt.Errorf("media %d (%s) failed: %s", s.model.ID, s.model.Kind, reason)
	s.mu.Unlock()
	s.log.Error().Str("reason", reason).Msg("media item failed")
	s.ReportReady()
}

// ReportEnded publishes the ended notification. A report that arrives
// after the item was stopped is stale and dropped; see the cancellation
// note in the package docs.
func (s *stageItem) ReportEnded() {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return
	}
	s.state = StatePaused
	s.mu.Unlock()

	s.bus.Publish(TopicEnded, s.model.ID)
}

// ReportPosition is a no-op for kinds without position tracking.
func (s *stageItem) ReportPosition(pos time.Duration) {}
