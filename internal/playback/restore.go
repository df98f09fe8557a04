package playback

import (
	"fmt"

	"github.com/mverkaik/stagehand/internal/storage/postgres"
)

// restoreScanLimit bounds how far back in the journal restoration looks.
const restoreScanLimit = 2000

// RestoredSession is the playback position recovered from the journal.
type RestoredSession struct {
	// Active is false when the journal shows the presentation ended or
	// stopped after the last subject change; there is nothing to resume.
	Active    bool
	SubjectID string
	Variables map[string]interface{}
}

// RestoreFromJournal reconstructs the last session from the journal's
// recent events: the most recent subject change gives the resume point,
// and every variable update since the last stop gives the variable
// state. A journal with no session to resume yields Active == false.
func RestoreFromJournal(j *postgres.Journal) (*RestoredSession, error) {
	rows, err := j.Tail(restoreScanLimit)
	if err != nil {
		return nil, fmt.Errorf("restore: read journal: %w", err)
	}
	return sessionFromRows(rows), nil
}

func sessionFromRows(rows []postgres.JournalRow) *RestoredSession {
	sess := &RestoredSession{Variables: make(map[string]interface{})}

	// Tail returns newest first; walk oldest to newest so later events
	// override earlier ones.
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		switch row.Event {
		case "player.stopped", "player.ended", "system.shutdown":
			sess.Active = false
			sess.SubjectID = ""
			sess.Variables = make(map[string]interface{})
		case "subject.playing":
			id, ok := row.Fields["subject"].(string)
			if !ok {
				continue
			}
			sess.Active = true
			sess.SubjectID = id
		case "variable.updated":
			id, ok := row.Fields["id"].(string)
			if !ok {
				continue
			}
			sess.Variables[id] = row.Fields["value"]
		}
	}

	return sess
}
