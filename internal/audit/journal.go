// internal/audit/journal.go
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"agency-workspace/internal/common/errors"
	"agency-workspace/internal/common/logger"
)

// DB is the slice of the Postgres client the journal needs.
type DB interface {
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Journal persists every mutation attempt and outcome to Postgres. Back
// office records live on the agency backend; the journal is the local trail
// of what this workspace changed and whether the backend accepted it.
type Journal struct {
	db     DB
	logger logger.Logger
}

func NewJournal(db DB, log logger.Logger) *Journal {
	return &Journal{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

const createTableQuery = `
CREATE TABLE IF NOT EXISTS mutation_journal (
	id         BIGSERIAL PRIMARY KEY,
	action     TEXT        NOT NULL,
	record_id  TEXT        NOT NULL,
	outcome    TEXT        NOT NULL,
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the journal table when missing.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, createTableQuery); err != nil {
		return errors.NewJournalWriteFailedError(err)
	}
	return nil
}

// Record appends one journal row.
func (j *Journal) Record(ctx context.Context, action, recordID, outcome string, payload map[string]interface{}) error {
	var payloadArg interface{}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			payloadArg = data
		}
	}

	query := `INSERT INTO mutation_journal (action, record_id, outcome, payload) VALUES ($1, $2, $3, $4)`
	if _, err := j.db.Exec(ctx, query, action, recordID, outcome, payloadArg); err != nil {
		j.logger.Error("journal insert failed", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
		return errors.NewJournalWriteFailedError(err)
	}
	return nil
}

// Entry is one journal row read back for inspection.
type Entry struct {
	ID        int64                  `json:"id"`
	Action    string                 `json:"action"`
	RecordID  string                 `json:"recordId"`
	Outcome   string                 `json:"outcome"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// History returns the most recent journal rows for one record, newest first.
func (j *Journal) History(ctx context.Context, recordID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, action, record_id, outcome, payload, created_at
		FROM mutation_journal WHERE record_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := j.db.Query(ctx, query, recordID, limit)
	if err != nil {
		return nil, errors.NewJournalWriteFailedError(err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.RecordID, &e.Outcome, &payload, &e.CreatedAt); err != nil {
			return nil, errors.NewJournalWriteFailedError(err)
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &e.Payload)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
