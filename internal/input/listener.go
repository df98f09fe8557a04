package input

import (
	"encoding/json"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/events"
)

// Player is the playback surface the listener drives.
type Player interface {
	Play()
	Pause()
	Stop()
	GoTo(subjectID string)
	Swipe(direction string)
}

// subscriber is the slice of Client the listener needs, split out so
// tests can inject a mock broker.
type subscriber interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// Listener subscribes to the presentation's gesture and control topics
// and translates incoming payloads into player calls.
type Listener struct {
	client       subscriber
	player       Player
	presentation string
	log          zerolog.Logger
}

// NewListener creates a listener for the given presentation ID.
func NewListener(client subscriber, player Player, presentation string, log zerolog.Logger) *Listener {
	return &Listener{
		client:       client,
		player:       player,
		presentation: presentation,
		log:          log,
	}
}

// GestureTopic returns the topic swipe gestures arrive on.
func (l *Listener) GestureTopic() string {
	return "stagehand/" + l.presentation + "/gesture"
}

// ControlTopic returns the topic transport commands arrive on.
func (l *Listener) ControlTopic() string {
	return "stagehand/" + l.presentation + "/control"
}

// Start subscribes to both input topics.
func (l *Listener) Start() error {
	if err := l.client.Subscribe(l.GestureTopic(), l.handleGesture); err != nil {
		return err
	}
	return l.client.Subscribe(l.ControlTopic(), l.handleControl)
}

// gesturePayload is the JSON form of a swipe message. A bare string
// payload ("left") is accepted as well.
type gesturePayload struct {
	Direction string `json:"direction"`
}

func (l *Listener) handleGesture(_ paho.Client, msg paho.Message) {
	direction := parseGesture(msg.Payload())
	if direction == "" {
		l.log.Warn().Str("payload", string(msg.Payload())).Msg("ignoring malformed gesture")
		return
	}

	events.Emit("info", "gesture.received", "", map[string]interface{}{
		"direction": direction,
	})
	l.player.Swipe(direction)
}

func parseGesture(payload []byte) string {
	var p gesturePayload
	if err := json.Unmarshal(payload, &p); err == nil && p.Direction != "" {
		return normalizeDirection(p.Direction)
	}
	return normalizeDirection(string(payload))
}

func normalizeDirection(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return "up"
	case "down":
		return "down"
	case "left":
		return "left"
	case "right":
		return "right"
	}
	return ""
}

// controlPayload is the JSON form of a transport command.
type controlPayload struct {
	Command string `json:"command"`
	Subject string `json:"subject,omitempty"`
}

func (l *Listener) handleControl(_ paho.Client, msg paho.Message) {
	var p controlPayload
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		// Bare commands ("play") are accepted too.
		p.Command = strings.ToLower(strings.TrimSpace(string(msg.Payload())))
	}

	fields := map[string]interface{}{"command": p.Command}
	if p.Subject != "" {
		fields["subject"] = p.Subject
	}

	switch p.Command {
	case "play":
		events.Emit("info", "control.received", "", fields)
		l.player.Play()
	case "pause":
		events.Emit("info", "control.received", "", fields)
		l.player.Pause()
	case "stop":
		events.Emit("info", "control.received", "", fields)
		l.player.Stop()
	case "goto":
		if p.Subject == "" {
			l.log.Warn().Msg("goto command without subject")
			return
		}
		events.Emit("info", "control.received", "", fields)
		l.player.GoTo(p.Subject)
	default:
		l.log.Warn().Str("command", p.Command).Msg("ignoring unknown control command")
	}
}
