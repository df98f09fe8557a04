// Package events is the engine's observable journal: every domain event
// (subject changes, media transitions, question outcomes, variable
// updates) is validated against a fixed vocabulary, buffered, broadcast
// to live observers, and persisted to Postgres when a journal is
// attached.
//
// This is deliberately separate from internal/pubsub: the pubsub buses
// carry the synchronous control-flow notifications between playback
// components, while this package records what happened for the outside
// world.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mverkaik/stagehand/internal/storage/postgres"
)

var buffer = NewRingBuffer(256)

var totalEmitted int64

// TotalCount returns the number of events emitted since startup.
func TotalCount() int64 {
	return atomic.LoadInt64(&totalEmitted)
}

var (
	journal            *postgres.Journal
	journalMu          sync.RWMutex
	journalErrorLogged bool
)

// SetJournal attaches a Postgres journal for event persistence.
func SetJournal(j *postgres.Journal) {
	journalMu.Lock()
	journal = j
	journalMu.Unlock()
}

// GetJournal returns the attached journal, or nil.
func GetJournal() *postgres.Journal {
	journalMu.RLock()
	defer journalMu.RUnlock()
	return journal
}

// Event is the wire format shared by the ring buffer, the live stream,
// and the journal.
type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emit records a domain event. The name must be registered; see registry.go.
func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	atomic.AddInt64(&totalEmitted, 1)

	journalMu.RLock()
	j := journal
	errorLogged := journalErrorLogged
	journalMu.RUnlock()

	if j != nil {
		if err := j.Append(ts, level, name, msg, fields); err != nil {
			// Log the failure once to avoid spam. The error event goes
			// straight into the ring buffer, NOT through Emit, so a
			// persistently failing journal cannot recurse.
			if !errorLogged {
				journalMu.Lock()
				if !journalErrorLogged {
					journalErrorLogged = true
					journalMu.Unlock()
					buffer.Add(Event{
						Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
						Level:     "error",
						Name:      "system.error",
						Message:   "journal append failed",
						Fields: map[string]interface{}{
							"error": err.Error(),
						},
					})
				} else {
					journalMu.Unlock()
				}
			}
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	broadcast(e)
	return b, nil
}

// Snapshot returns the buffered recent events in order.
func Snapshot() []Event {
	return buffer.Snapshot()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
