// Package media defines the capability contract between the playback core
// and concrete media kinds, plus the stage contract used to drive the
// browser client. The core functions identically whether or not an item
// reports its own play time (PlayTimer) and whether or not it ever ends
// naturally (an image never does; its declared duration bounds it).
package media

import (
	"context"
	"time"

	"github.com/mverkaik/stagehand/internal/model"
	"github.com/mverkaik/stagehand/internal/pubsub"
)

// State is the lifecycle state of a media item.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Notification topics published on an item's bus.
const (
	// TopicEnded fires when the item has nothing more to play.
	TopicEnded = "ended"
)

// Item is the capability interface every media kind implements.
type Item interface {
	// Model returns the parsed media model this item was built from.
	Model() *model.Media

	Play()
	Pause()
	Stop()

	IsPlaying() bool
	IsPaused() bool
	IsStopped() bool

	// Preload asks the stage to buffer the item and blocks until the
	// stage reports readiness or ctx expires. An error means the item
	// did not become ready; playback skips it rather than halting.
	Preload(ctx context.Context) error

	// Events is the item's notification bus. The owning media player
	// subscribes to TopicEnded on it.
	Events() *pubsub.Bus
}

// PlayTimer is the optional capability of items that track their own
// playback position. The media player prefers it over its internal
// estimator when present; resolve with a type assertion.
type PlayTimer interface {
	PlayTime() time.Duration
}

// Reporter receives playback reports from the stage client. The stage
// event dispatcher routes reports to the item they concern.
type Reporter interface {
	// ReportReady marks the item buffered and playable.
	ReportReady()
	// ReportEnded signals the underlying element ran out of content.
	ReportEnded()
	// ReportPosition updates the stage-observed playback position.
	ReportPosition(pos time.Duration)
	// ReportFailed marks the item unplayable.
	ReportFailed(reason string)
}
