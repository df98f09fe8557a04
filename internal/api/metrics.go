package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mverkaik/stagehand/internal/events"
	"github.com/mverkaik/stagehand/internal/version"
)

// Metrics state
var (
	metricsState = &MetricsState{}
)

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu        sync.RWMutex
	startTime time.Time
}

// readiness tracks external-dependency connectivity for metrics.
var readiness = struct {
	mu                sync.RWMutex
	mqttConnected     bool
	postgresConnected bool
}{}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
}

// SetMQTTConnected records MQTT broker connectivity.
func SetMQTTConnected(connected bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mu.Unlock()
}

// SetPostgresConnected records journal connectivity.
func SetPostgresConnected(connected bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.mu.Unlock()
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func (srv *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	metricsState.mu.RUnlock()

	uptime := time.Since(startTime).Seconds()
	eventsTotal := events.TotalCount()

	readiness.mu.RLock()
	mqttConnected := readiness.mqttConnected
	postgresConnected := readiness.postgresConnected
	readiness.mu.RUnlock()

	wsClients := events.SubscriberCount()

	playing := 0
	if srv.player.IsPlaying() {
		playing = 1
	}

	stageConnected := 0
	if srv.stage.Connected() {
		stageConnected = 1
	}

	mqttConnectedVal := 0
	if mqttConnected {
		mqttConnectedVal = 1
	}

	postgresConnectedVal := 0
	if postgresConnected {
		postgresConnectedVal = 1
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		if labels != "" {
			fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
		} else {
			fmt.Fprintf(w, "%s %v\n", name, value)
		}
	}

	labels := fmt.Sprintf(`presentation="%s",instance="%s",version="%s"`,
		srv.presentationName, hostname, version.Version)

	writeMetric("stagehand_uptime_seconds", "gauge",
		"Number of seconds since the engine started", uptime, labels)

	writeMetric("stagehand_player_playing", "gauge",
		"Whether the presentation is playing (1) or not (0)", playing, labels)

	writeMetric("stagehand_events_total", "counter",
		"Total number of events emitted since startup", eventsTotal, labels)

	writeMetric("stagehand_stage_connected", "gauge",
		"Whether a stage client is connected (1) or not (0)", stageConnected, labels)

	writeMetric("stagehand_mqtt_connected", "gauge",
		"Whether the MQTT broker is connected (1) or not (0)", mqttConnectedVal, labels)

	writeMetric("stagehand_postgres_connected", "gauge",
		"Whether PostgreSQL is connected (1) or not (0)", postgresConnectedVal, labels)

	writeMetric("stagehand_ws_clients", "gauge",
		"Number of active WebSocket event-stream connections", wsClients, labels)
}
