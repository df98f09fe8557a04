package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// Alert severity levels
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert event types
const (
	AlertMQTTDisconnected    = "mqtt_disconnected"
	AlertPostgresUnavailable = "postgres_unavailable"
	AlertStageDisconnected   = "stage_disconnected"
)

// AlertPayload is the JSON structure sent to the webhook.
type AlertPayload struct {
	Presentation string                 `json:"presentation"`
	Event        string                 `json:"event"`
	Timestamp    string                 `json:"timestamp"`
	Severity     string                 `json:"severity"`
	Message      string                 `json:"message,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// AlertConfig holds alert configuration.
type AlertConfig struct {
	WebhookURL              string
	MQTTDisconnectDelay     time.Duration // How long MQTT must be disconnected before alerting
	PostgresDisconnectDelay time.Duration // How long Postgres must be disconnected before alerting
	StageDisconnectDelay    time.Duration // How long the stage client must be gone before alerting
}

var (
	alertConfig = &AlertConfig{
		MQTTDisconnectDelay:     30 * time.Second,
		PostgresDisconnectDelay: 5 * time.Second,
		StageDisconnectDelay:    15 * time.Second,
	}
	alertMu sync.Mutex

	alertPresentation string

	// Track connection state for alerting
	mqttDisconnectedSince   time.Time
	mqttAlertSent           bool
	postgresDisconnectedAt  time.Time
	postgresAlertSent       bool
	stageDisconnectedAt     time.Time
	stageAlertSent          bool
	lastKnownMQTTState      bool
	lastKnownPostgresState  bool
	lastKnownStageState     bool
	alertMonitorInitialized bool
)

// InitAlerts initializes the alert system from environment variables.
func InitAlerts(presentation string) {
	alertMu.Lock()
	defer alertMu.Unlock()

	alertPresentation = presentation
	alertConfig.WebhookURL = os.Getenv("STAGEHAND_ALERT_WEBHOOK_URL")

	// Optional: custom disconnect delays
	if delayStr := os.Getenv("STAGEHAND_MQTT_ALERT_DELAY"); delayStr != "" {
		if d, err := time.ParseDuration(delayStr); err == nil {
			alertConfig.MQTTDisconnectDelay = d
		}
	}
	if delayStr := os.Getenv("STAGEHAND_POSTGRES_ALERT_DELAY"); delayStr != "" {
		if d, err := time.ParseDuration(delayStr); err == nil {
			alertConfig.PostgresDisconnectDelay = d
		}
	}
	if delayStr := os.Getenv("STAGEHAND_STAGE_ALERT_DELAY"); delayStr != "" {
		if d, err := time.ParseDuration(delayStr); err == nil {
			alertConfig.StageDisconnectDelay = d
		}
	}

	if alertConfig.WebhookURL != "" {
		log.Printf("Alerts enabled: webhook URL configured (mqtt_delay=%s, pg_delay=%s, stage_delay=%s)",
			alertConfig.MQTTDisconnectDelay, alertConfig.PostgresDisconnectDelay, alertConfig.StageDisconnectDelay)
	}

	// Assume everything connected at start
	lastKnownMQTTState = true
	lastKnownPostgresState = true
	lastKnownStageState = true
	alertMonitorInitialized = true
}

// GetAlertWebhookURL returns the configured webhook URL (for testing).
func GetAlertWebhookURL() string {
	alertMu.Lock()
	defer alertMu.Unlock()
	return alertConfig.WebhookURL
}

// SendAlert sends an alert to the configured webhook (best-effort, non-blocking).
func SendAlert(event, severity, message string, details map[string]interface{}) {
	alertMu.Lock()
	webhookURL := alertConfig.WebhookURL
	presentation := alertPresentation
	alertMu.Unlock()

	if webhookURL == "" {
		// No webhook configured, log instead
		log.Printf("[ALERT] %s severity=%s msg=%q details=%v", event, severity, message, details)
		return
	}

	if presentation == "" {
		presentation = "unknown"
	}

	payload := AlertPayload{
		Presentation: presentation,
		Event:        event,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Severity:     severity,
		Message:      message,
		Details:      details,
	}

	// Send asynchronously to avoid blocking
	go sendWebhook(webhookURL, payload)
}

// sendWebhook performs the actual HTTP POST (runs in goroutine).
func sendWebhook(url string, payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("alert: failed to marshal payload: %v", err)
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("alert: webhook POST failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("alert: webhook returned status %d", resp.StatusCode)
	}
}

// CheckAndAlertMQTT checks MQTT state and sends alert if disconnected too long.
// Should be called periodically or on state change.
func CheckAndAlertMQTT(connected bool) {
	alertMu.Lock()
	defer alertMu.Unlock()

	if !alertMonitorInitialized {
		return
	}

	now := time.Now()

	if connected {
		if !lastKnownMQTTState && mqttAlertSent {
			// Was disconnected and alerted, now recovered - send recovery alert
			go SendAlert(AlertMQTTDisconnected, SeverityInfo, "MQTT connection restored", map[string]interface{}{
				"recovered_at": now.UTC().Format(time.RFC3339),
			})
		}
		mqttDisconnectedSince = time.Time{}
		mqttAlertSent = false
		lastKnownMQTTState = true
		return
	}

	if lastKnownMQTTState {
		mqttDisconnectedSince = now
	}
	lastKnownMQTTState = false

	if !mqttAlertSent && !mqttDisconnectedSince.IsZero() {
		disconnectedDuration := now.Sub(mqttDisconnectedSince)
		if disconnectedDuration >= alertConfig.MQTTDisconnectDelay {
			mqttAlertSent = true
			go SendAlert(AlertMQTTDisconnected, SeverityWarning,
				"MQTT broker disconnected",
				map[string]interface{}{
					"disconnected_since":   mqttDisconnectedSince.UTC().Format(time.RFC3339),
					"disconnected_seconds": int(disconnectedDuration.Seconds()),
				})
		}
	}
}

// CheckAndAlertPostgres checks Postgres state and sends alert if unavailable.
func CheckAndAlertPostgres(connected bool) {
	alertMu.Lock()
	defer alertMu.Unlock()

	if !alertMonitorInitialized {
		return
	}

	now := time.Now()

	if connected {
		if !lastKnownPostgresState && postgresAlertSent {
			go SendAlert(AlertPostgresUnavailable, SeverityInfo, "PostgreSQL connection restored", map[string]interface{}{
				"recovered_at": now.UTC().Format(time.RFC3339),
			})
		}
		postgresDisconnectedAt = time.Time{}
		postgresAlertSent = false
		lastKnownPostgresState = true
		return
	}

	if lastKnownPostgresState {
		postgresDisconnectedAt = now
	}
	lastKnownPostgresState = false

	if !postgresAlertSent && !postgresDisconnectedAt.IsZero() {
		disconnectedDuration := now.Sub(postgresDisconnectedAt)
		if disconnectedDuration >= alertConfig.PostgresDisconnectDelay {
			postgresAlertSent = true
			go SendAlert(AlertPostgresUnavailable, SeverityCritical,
				"PostgreSQL unavailable",
				map[string]interface{}{
					"disconnected_since":   postgresDisconnectedAt.UTC().Format(time.RFC3339),
					"disconnected_seconds": int(disconnectedDuration.Seconds()),
				})
		}
	}
}

// CheckAndAlertStage checks stage-client state and sends alert if the
// presentation has no renderer attached for too long.
func CheckAndAlertStage(connected bool) {
	alertMu.Lock()
	defer alertMu.Unlock()

	if !alertMonitorInitialized {
		return
	}

	now := time.Now()

	if connected {
		if !lastKnownStageState && stageAlertSent {
			go SendAlert(AlertStageDisconnected, SeverityInfo, "Stage client reconnected", map[string]interface{}{
				"recovered_at": now.UTC().Format(time.RFC3339),
			})
		}
		stageDisconnectedAt = time.Time{}
		stageAlertSent = false
		lastKnownStageState = true
		return
	}

	if lastKnownStageState {
		stageDisconnectedAt = now
	}
	lastKnownStageState = false

	if !stageAlertSent && !stageDisconnectedAt.IsZero() {
		disconnectedDuration := now.Sub(stageDisconnectedAt)
		if disconnectedDuration >= alertConfig.StageDisconnectDelay {
			stageAlertSent = true
			go SendAlert(AlertStageDisconnected, SeverityWarning,
				"Stage client disconnected",
				map[string]interface{}{
					"disconnected_since":   stageDisconnectedAt.UTC().Format(time.RFC3339),
					"disconnected_seconds": int(disconnectedDuration.Seconds()),
				})
		}
	}
}

// StartAlertMonitor starts a background goroutine that periodically
// checks connection states.
func (srv *Server) StartAlertMonitor(checkInterval time.Duration) {
	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for range ticker.C {
			readiness.mu.RLock()
			mqttConnected := readiness.mqttConnected
			postgresConnected := readiness.postgresConnected
			readiness.mu.RUnlock()

			CheckAndAlertMQTT(mqttConnected)
			CheckAndAlertPostgres(postgresConnected)
			CheckAndAlertStage(srv.stage.Connected())
		}
	}()
}
