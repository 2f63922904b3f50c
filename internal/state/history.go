package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionPrune      Action = "prune"
)

type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// keepPerProject bounds the journal size.
const keepPerProject = 200

// HistoryEntry is one lifecycle operation as it was attempted.
type HistoryEntry struct {
	ID        string
	RunID     string
	Project   string
	Action    Action
	Outcome   Outcome
	Ports     []int
	Detail    string
	CreatedAt time.Time
}

type History struct {
	db *DB
}

// NewHistory creates the journal and ensures its table exists.
func NewHistory(ctx context.Context, database *DB) (*History, error) {
	h := &History{db: database}
	if err := h.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *History) ensureSchema(ctx context.Context) error {
	const createTable = `
CREATE TABLE IF NOT EXISTS history (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	project    TEXT NOT NULL,
	action     TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	ports      TEXT NOT NULL,
	detail     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS history_project_created ON history (project, created_at);
`
	if _, err := h.db.SQL().ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("history: ensure schema: %w", err)
	}
	return nil
}

// Record appends e and trims the project's oldest rows.
func (h *History) Record(ctx context.Context, e HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Ports == nil {
		e.Ports = []int{}
	}
	ports, err := json.Marshal(e.Ports)
	if err != nil {
		return fmt.Errorf("history: encode ports: %w", err)
	}

	return h.db.WithTx(ctx, func(tx *sql.Tx) error {
		const insert = `
INSERT INTO history (id, run_id, project, action, outcome, ports, detail, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`
		if _, err := tx.ExecContext(ctx, insert,
			e.ID, e.RunID, e.Project, string(e.Action), string(e.Outcome), string(ports), e.Detail, e.CreatedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("history: insert: %w", err)
		}

		const trim = `
DELETE FROM history
WHERE project = ? AND id NOT IN (
	SELECT id FROM history WHERE project = ? ORDER BY created_at DESC LIMIT ?
)
`
		if _, err := tx.ExecContext(ctx, trim, e.Project, e.Project, keepPerProject); err != nil {
			return fmt.Errorf("history: trim: %w", err)
		}
		return nil
	})
}

// List returns the newest entries first. An empty project lists all.
func (h *History) List(ctx context.Context, project string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, run_id, project, action, outcome, ports, detail, created_at
FROM history
WHERE (? = '' OR project = ?)
ORDER BY created_at DESC
LIMIT ?
`
	rows, err := h.db.SQL().QueryContext(ctx, q, project, project, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e       HistoryEntry
			action  string
			outcome string
			ports   string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Project, &action, &outcome, &ports, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Action, e.Outcome = Action(action), Outcome(outcome)
		if err := json.Unmarshal([]byte(ports), &e.Ports); err != nil {
			return nil, fmt.Errorf("history: decode ports of %s: %w", e.ID, err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
