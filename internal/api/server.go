package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/events"
)

// PlayerControl is the slice of the player the API drives. The playback
// package's Player satisfies it.
type PlayerControl interface {
	Play()
	Pause()
	Stop()
	GoTo(target string)
	Swipe(direction string)
	AnswerQuestion(answer string)
	ClickOverlay(idx int)
	DismissFrame()

	ReportMediaReady(mediaID int)
	ReportMediaEnded(mediaID int)
	ReportMediaPosition(mediaID int, position time.Duration)
	ReportMediaFailed(mediaID int, reason string)

	IsPlaying() bool
	IsPaused() bool
	IsStopped() bool
	CurrentSubject() string
	Variables() map[string]interface{}
}

// Server is the operator and stage-facing HTTP surface.
type Server struct {
	player PlayerControl
	stage  *StageChannel
	log    zerolog.Logger

	presentationName string
}

func NewServer(player PlayerControl, stage *StageChannel, presentationName string, log zerolog.Logger) *Server {
	return &Server{
		player:           player,
		stage:            stage,
		log:              log.With().Str("component", "api").Logger(),
		presentationName: presentationName,
	}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func (srv *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "stagehand",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (srv *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events.Snapshot())
}

// StatusResponse is the player state summary for operator dashboards.
type StatusResponse struct {
	State          string                 `json:"state"`
	Subject        string                 `json:"subject,omitempty"`
	StageConnected bool                   `json:"stage_connected"`
	Variables      map[string]interface{} `json:"variables,omitempty"`
}

func (srv *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	state := "stopped"
	switch {
	case srv.player.IsPlaying():
		state = "playing"
	case srv.player.IsPaused():
		state = "paused"
	}

	resp := StatusResponse{
		State:          state,
		Subject:        srv.player.CurrentSubject(),
		StageConnected: srv.stage.Connected(),
		Variables:      srv.player.Variables(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type ControlResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func writeControl(w http.ResponseWriter, status int, resp ControlResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// controlHandler wraps a simple no-argument player action as POST.
func (srv *Server) controlHandler(action func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeControl(w, http.StatusMethodNotAllowed, ControlResponse{Error: "method not allowed"})
			return
		}
		action()
		writeControl(w, http.StatusOK, ControlResponse{OK: true})
	}
}

type GoToRequest struct {
	Subject string `json:"subject"`
}

func (srv *Server) gotoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeControl(w, http.StatusMethodNotAllowed, ControlResponse{Error: "method not allowed"})
		return
	}

	var req GoToRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeControl(w, http.StatusBadRequest, ControlResponse{Error: "invalid JSON"})
		return
	}
	if req.Subject == "" {
		writeControl(w, http.StatusBadRequest, ControlResponse{Error: "subject required"})
		return
	}

	srv.player.GoTo(req.Subject)
	writeControl(w, http.StatusOK, ControlResponse{OK: true})
}

type AnswerRequest struct {
	Answer string `json:"answer"`
}

func (srv *Server) answerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeControl(w, http.StatusMethodNotAllowed, ControlResponse{Error: "method not allowed"})
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeControl(w, http.StatusBadRequest, ControlResponse{Error: "invalid JSON"})
		return
	}

	srv.player.AnswerQuestion(req.Answer)
	writeControl(w, http.StatusOK, ControlResponse{OK: true})
}

// Handler builds the full route table.
func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.healthHandler)
	mux.HandleFunc("/metrics", srv.metricsHandler)
	mux.HandleFunc("/events", RequireAnyRole(srv.eventsHandler))
	mux.HandleFunc("/player/status", RequireAnyRole(srv.statusHandler))
	mux.HandleFunc("/player/play", RequireAnyRole(srv.controlHandler(srv.player.Play)))
	mux.HandleFunc("/player/pause", RequireAnyRole(srv.controlHandler(srv.player.Pause)))
	mux.HandleFunc("/player/stop", RequireAdmin(srv.controlHandler(srv.player.Stop)))
	mux.HandleFunc("/player/goto", RequireAnyRole(srv.gotoHandler))
	mux.HandleFunc("/player/answer", RequireAnyRole(srv.answerHandler))
	mux.HandleFunc("/player/frame/dismiss", RequireAnyRole(srv.controlHandler(srv.player.DismissFrame)))
	mux.HandleFunc("/ws/events", srv.wsEventsHandler)
	mux.HandleFunc("/ws/stage", srv.wsStageHandler)
	mux.HandleFunc("/", srv.uiHandler)
	return mux
}

// ListenAndServe starts the API server on the given port, with TLS when
// configured. It blocks until the server exits.
func (srv *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv.log.Info().Str("addr", addr).Bool("tls", IsTLSEnabled()).Msg("api listening")
	return listenAndServeMaybeTLS(addr, srv.Handler())
}

// Start starts the API server in a goroutine. Errors are logged but do
// not stop the caller.
func (srv *Server) Start(port int) {
	go func() {
		if err := srv.ListenAndServe(port); err != nil {
			srv.log.Error().Err(err).Msg("api server error")
		}
	}()
}
