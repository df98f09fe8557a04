package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/events"
	"github.com/mverkaik/stagehand/internal/model"
)

// StageDirective is one rendering instruction sent to the stage client.
type StageDirective struct {
	Action  string `json:"action"`
	MediaID int    `json:"mediaId,omitempty"`
	Kind    string `json:"kind,omitempty"`

	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Duration   int                    `json:"duration,omitempty"`

	Overlay  *OverlayPayload  `json:"overlay,omitempty"`
	Question *QuestionPayload `json:"question,omitempty"`
	URL      string           `json:"url,omitempty"`
	Index    int              `json:"index,omitempty"`
}

// OverlayPayload carries an overlay's presentation attributes.
type OverlayPayload struct {
	StartTime  int                    `json:"startTime"`
	Duration   int                    `json:"duration,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// QuestionPayload carries a question's display data. The correct answer
// stays server-side.
type QuestionPayload struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// StageReport is one message received from the stage client.
type StageReport struct {
	Type           string `json:"type"`
	MediaID        int    `json:"mediaId,omitempty"`
	PositionMillis int    `json:"positionMillis,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Index          int    `json:"index,omitempty"`
	Answer         string `json:"answer,omitempty"`
	Direction      string `json:"direction,omitempty"`
	Target         string `json:"target,omitempty"`
}

// StageChannel delivers rendering directives to the connected stage
// client over WebSocket and feeds its reports back into the player. It
// implements the fire-and-forget stage contract: directives sent while
// no client is connected are dropped with a warning, and a reconnecting
// client is expected to resynchronize from the event stream.
//
// One stage client at a time: a new connection replaces the old one.
type StageChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	log  zerolog.Logger

	pingPeriod time.Duration
}

func NewStageChannel(log zerolog.Logger) *StageChannel {
	return &StageChannel{
		log:        log.With().Str("component", "stage").Logger(),
		pingPeriod: pingPeriod,
	}
}

// Attach takes over the stage connection, closing any previous one, and
// starts the writer goroutine. Callers run the read loop themselves.
// The writer is torn down through the done channel; the send channel is
// never closed, so a dispatch racing a reconnect queues into a dead
// channel at worst.
func (s *StageChannel) Attach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
		close(s.done)
	}
	s.conn = conn
	send := make(chan []byte, 64)
	done := make(chan struct{})
	s.send = send
	s.done = done
	s.mu.Unlock()

	go func() {
		ping := time.NewTicker(s.pingPeriod)
		defer ping.Stop()
		for {
			select {
			case msg := <-send:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					s.log.Warn().Err(err).Msg("stage write failed")
					conn.Close()
					return
				}
			case <-ping.C:
				// An idle stage client (a still image, nothing to
				// report) must not hit its read deadline.
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()
}

// Detach drops the connection if it is still the current one.
func (s *StageChannel) Detach(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		return
	}
	s.conn.Close()
	close(s.done)
	s.conn = nil
	s.send = nil
	s.done = nil
}

// Connected reports whether a stage client is attached.
func (s *StageChannel) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *StageChannel) dispatch(d StageDirective) {
	msg, err := json.Marshal(d)
	if err != nil {
		s.log.Error().Err(err).Str("action", d.Action).Msg("cannot marshal stage directive")
		return
	}

	// The send is non-blocking, so the mutex can be held across it; that
	// keeps the nil check and the enqueue atomic against Attach/Detach.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.send == nil {
		s.log.Warn().Str("action", d.Action).Msg("no stage client connected, directive dropped")
		return
	}

	select {
	case s.send <- msg:
	default:
		s.log.Warn().Str("action", d.Action).Msg("stage send queue full, directive dropped")
	}
}

func (s *StageChannel) PreloadMedia(m *model.Media) {
	s.dispatch(StageDirective{
		Action:     "preload",
		MediaID:    m.ID,
		Kind:       m.Kind,
		Duration:   m.Duration,
		Attributes: m.Extra,
	})
}

func (s *StageChannel) PlayMedia(m *model.Media) {
	s.dispatch(StageDirective{
		Action:     "play",
		MediaID:    m.ID,
		Kind:       m.Kind,
		Duration:   m.Duration,
		Attributes: m.Extra,
	})
}

func (s *StageChannel) PauseMedia(mediaID int) {
	s.dispatch(StageDirective{Action: "pause", MediaID: mediaID})
}

func (s *StageChannel) StopMedia(mediaID int) {
	s.dispatch(StageDirective{Action: "stop", MediaID: mediaID})
}

func (s *StageChannel) ShowOverlay(idx int, o *model.Overlay) {
	s.dispatch(StageDirective{
		Action: "showOverlay",
		Index:  idx,
		Overlay: &OverlayPayload{
			StartTime:  o.StartTime,
			Duration:   o.Duration,
			Attributes: o.Attrs,
		},
	})
}

func (s *StageChannel) HideOverlay(idx int) {
	s.dispatch(StageDirective{Action: "hideOverlay", Index: idx})
}

func (s *StageChannel) ShowQuestion(q *model.Question) {
	s.dispatch(StageDirective{
		Action:   "showQuestion",
		Question: &QuestionPayload{Text: q.Text, Options: q.Options},
	})
}

func (s *StageChannel) HideQuestion() {
	s.dispatch(StageDirective{Action: "hideQuestion"})
}

func (s *StageChannel) ShowFrame(url string) {
	s.dispatch(StageDirective{Action: "showFrame", URL: url})
}

func (s *StageChannel) HideFrame() {
	s.dispatch(StageDirective{Action: "hideFrame"})
}

// wsStageHandler upgrades the stage client connection and runs its read
// loop, translating reports into player calls.
func (srv *Server) wsStageHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.log.Warn().Err(err).Msg("stage ws upgrade failed")
		return
	}

	srv.stage.Attach(conn)
	events.Emit("info", "stage.connected", "", map[string]interface{}{
		"remote": conn.RemoteAddr().String(),
	})

	defer func() {
		srv.stage.Detach(conn)
		events.Emit("info", "stage.disconnected", "", map[string]interface{}{
			"remote": conn.RemoteAddr().String(),
		})
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var report StageReport
		if err := json.Unmarshal(msg, &report); err != nil {
			srv.log.Warn().Err(err).Msg("malformed stage report")
			continue
		}
		srv.handleStageReport(report)
	}
}

func (srv *Server) handleStageReport(report StageReport) {
	switch report.Type {
	case "ready":
		srv.player.ReportMediaReady(report.MediaID)
	case "ended":
		srv.player.ReportMediaEnded(report.MediaID)
	case "position":
		srv.player.ReportMediaPosition(report.MediaID, time.Duration(report.PositionMillis)*time.Millisecond)
	case "failed":
		srv.player.ReportMediaFailed(report.MediaID, report.Reason)
	case "overlayClick":
		srv.player.ClickOverlay(report.Index)
	case "answer":
		srv.player.AnswerQuestion(report.Answer)
	case "swipe":
		srv.player.Swipe(report.Direction)
	case "dismissFrame":
		srv.player.DismissFrame()
	default:
		srv.log.Warn().Str("type", report.Type).Msg("unknown stage report type")
	}
}
