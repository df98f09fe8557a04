// Package postgres persists the playback journal: every validated domain
// event the engine emits, in order. The journal doubles as the source for
// session restore after an engine restart.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/mverkaik/stagehand/internal/config"
)

// JournalRow is one persisted playback event.
type JournalRow struct {
	EventID        int64                  `json:"event_id"`
	Timestamp      time.Time              `json:"ts"`
	Level          string                 `json:"level"`
	Event          string                 `json:"event"`
	Message        *string                `json:"msg,omitempty"`
	Fields         map[string]interface{} `json:"fields,omitempty"`
	PresentationID string                 `json:"presentation_id"`
}

// Journal manages the Postgres connection for playback event storage.
type Journal struct {
	db             *sql.DB
	presentationID string
}

// Open connects to Postgres using the PG* environment variables
// (PGPASSWORD supports the *_FILE convention) and ensures the journal
// table exists. Callers treat a returned error as "journal unavailable"
// and keep running without persistence.
func Open(presentationID string) (*Journal, error) {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "stagehand")
	dbname := getEnv("PGDATABASE", "stagehand")
	password, err := config.ResolveSecret("PGPASSWORD")
	if err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable", host, port, user, dbname)
	if password != "" {
		connStr += " password=" + password
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	j := &Journal{db: db, presentationID: presentationID}
	if err := j.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create playback_events table: %w", err)
	}
	return j, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (j *Journal) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS playback_events (
			event_id        BIGSERIAL PRIMARY KEY,
			ts              TIMESTAMPTZ NOT NULL,
			level           TEXT NOT NULL,
			event           TEXT NOT NULL,
			msg             TEXT,
			fields          JSONB,
			presentation_id TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_playback_events_ts ON playback_events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_playback_events_presentation ON playback_events(presentation_id);
	`
	_, err := j.db.Exec(query)
	return err
}

// Append inserts one event into the journal.
func (j *Journal) Append(ts time.Time, level, event, msg string, fields map[string]interface{}) error {
	var fieldsJSON []byte
	var err error
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}

	query := `
		INSERT INTO playback_events (ts, level, event, msg, fields, presentation_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = j.db.Exec(query, ts, level, event, msgPtr, fieldsJSON, j.presentationID)
	return err
}

// Tail returns the last limit events for this presentation, newest first.
func (j *Journal) Tail(limit int) ([]JournalRow, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}

	query := `
		SELECT event_id, ts, level, event, msg, fields, presentation_id
		FROM playback_events
		WHERE presentation_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := j.db.Query(query, j.presentationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalRow
	for rows.Next() {
		var row JournalRow
		var fieldsJSON []byte
		var msg sql.NullString

		if err := rows.Scan(&row.EventID, &row.Timestamp, &row.Level, &row.Event, &msg, &fieldsJSON, &row.PresentationID); err != nil {
			return nil, err
		}
		if msg.Valid {
			row.Message = &msg.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &row.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
