package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Run is one generation request and where it ended up.
type Run struct {
	ID          string     `db:"id" json:"id"`
	Description string     `db:"description" json:"description"`
	Provider    string     `db:"provider" json:"provider"`
	State       string     `db:"state" json:"state"`
	PageID      string     `db:"page_id" json:"page_id,omitempty"`
	Error       string     `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	FinishedAt  *time.Time `db:"finished_at" json:"finished_at,omitempty"` // NULL while running
	Attempts    int        `db:"-" json:"attempts"`
}

// Attempt is one pass through the generation service within a run.
type Attempt struct {
	RunID       string    `db:"run_id" json:"run_id"`
	N           int       `db:"n" json:"n"`
	Temperature float64   `db:"temperature" json:"temperature"`
	TopP        float64   `db:"top_p" json:"top_p"`
	Outcome     string    `db:"outcome" json:"outcome"`
	Error       string    `db:"error" json:"error,omitempty"`
	Raw         string    `db:"raw" json:"raw,omitempty"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
}

// CreateRun stores a new run
func (d *DB) CreateRun(run *Run) error {
	_, err := d.db.Exec(`
	INSERT INTO runs (id, description, provider, state, page_id, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Description, run.Provider, run.State, run.PageID, run.Error, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the final state of a run
func (d *DB) FinishRun(id, state, pageID, errMsg string, at time.Time) error {
	res, err := d.db.Exec(`
	UPDATE runs SET state = ?, page_id = ?, error = ?, finished_at = ?
	WHERE id = ?`,
		state, pageID, errMsg, at, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run: no run %s", id)
	}
	return nil
}

// AddAttempt stores one attempt of a run
func (d *DB) AddAttempt(a *Attempt) error {
	_, err := d.db.Exec(`
	INSERT INTO attempts (run_id, n, temperature, top_p, outcome, error, raw, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.N, a.Temperature, a.TopP, a.Outcome, a.Error, a.Raw, a.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

const runQuery = `
	SELECT r.id, r.description, r.provider, r.state, r.page_id, r.error,
	       r.created_at, r.finished_at, COUNT(a.n)
	FROM runs r
	LEFT JOIN attempts a ON a.run_id = r.id
`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	run := &Run{}
	var provider, pageID, errMsg sql.NullString
	err := row.Scan(&run.ID, &run.Description, &provider, &run.State, &pageID, &errMsg,
		&run.CreatedAt, &run.FinishedAt, &run.Attempts)
	if err != nil {
		return nil, err
	}
	run.Provider, run.PageID, run.Error = provider.String, pageID.String, errMsg.String
	return run, nil
}

// GetRun retrieves a run by ID. It returns nil when there is none.
func (d *DB) GetRun(id string) (*Run, error) {
	run, err := scanRun(d.db.QueryRow(runQuery+` WHERE r.id = ? GROUP BY r.id`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns retrieves the most recent runs, newest first (0 = all)
func (d *DB) ListRuns(limit int) ([]*Run, error) {
	query := runQuery + ` GROUP BY r.id ORDER BY r.created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListAttempts retrieves the attempts of a run in order
func (d *DB) ListAttempts(runID string) ([]*Attempt, error) {
	rows, err := d.db.Query(`
	SELECT run_id, n, temperature, top_p, outcome, error, raw, started_at
	FROM attempts WHERE run_id = ? ORDER BY n`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Attempt
	for rows.Next() {
		a := &Attempt{}
		var errMsg, raw sql.NullString
		if err := rows.Scan(&a.RunID, &a.N, &a.Temperature, &a.TopP, &a.Outcome, &errMsg, &raw, &a.StartedAt); err != nil {
			return nil, err
		}
		a.Error, a.Raw = errMsg.String, raw.String
		out = append(out, a)
	}
	return out, rows.Err()
}
