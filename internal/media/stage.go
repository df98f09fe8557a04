package media

import "github.com/mverkaik/stagehand/internal/model"

// Stage is the rendering surface the engine drives. The production
// implementation sends commands to the browser client over the stage
// WebSocket channel; tests substitute a recording fake.
//
// All methods are fire-and-forget: a missing or slow stage client must
// never block the playback state machines.
type Stage interface {
	// Media element lifecycle.
	PreloadMedia(m *model.Media)
	PlayMedia(m *model.Media)
	PauseMedia(mediaID int)
	StopMedia(mediaID int)

	// Overlays, identified by their index within the owning media item.
	ShowOverlay(index int, o *model.Overlay)
	HideOverlay(index int)

	// Questions; at most one is on screen at a time.
	ShowQuestion(q *model.Question)
	HideQuestion()

	// Dismissible external-URL frame over the whole presentation.
	ShowFrame(url string)
	HideFrame()
}
