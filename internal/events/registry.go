package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// player
	"player.playing": {},
	"player.paused":  {},
	"player.resumed": {},
	"player.stopped": {},
	"player.ended":   {},

	// subject
	"subject.playing": {},

	// sequence
	"sequence.started": {},
	"sequence.ended":   {},

	// media
	"media.started": {},
	"media.paused":  {},
	"media.resumed": {},
	"media.ended":   {},
	"media.repeat":  {},
	"media.failed":  {},

	// overlay
	"overlay.shown":   {},
	"overlay.hidden":  {},
	"overlay.clicked": {},

	// question
	"questionlist.started": {},
	"questionlist.ended":   {},
	"question.asked":       {},
	"question.answered":    {},
	"question.timeout":     {},

	// variable
	"variable.updated": {},

	// frame
	"frame.opened": {},
	"frame.closed": {},

	// input
	"gesture.received": {},
	"control.received": {},

	// stage
	"stage.connected":    {},
	"stage.disconnected": {},

	// session
	"session.restored": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

// Validate reports whether the event name is part of the playback
// vocabulary. Emitting an unregistered name is a programming error.
func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
