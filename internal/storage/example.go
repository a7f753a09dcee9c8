package storage

import (
	"database/sql"
	"time"
)

// Example is a stored few-shot example: a request and the generation output
// that answered it.
type Example struct {
	ID          string    `db:"id"`
	Prompt      string    `db:"prompt"`
	Response    string    `db:"response"`  // narrative
	Blueprint   string    `db:"blueprint"` // page JSON
	ContentHash string    `db:"content_hash"`
	Source      string    `db:"source"` // file it was imported from
	ImportedAt  time.Time `db:"imported_at"`
}

const exampleColumns = `id, prompt, response, blueprint, content_hash, source, imported_at`

func scanExample(row interface{ Scan(...any) error }) (*Example, error) {
	ex := &Example{}
	var source sql.NullString
	err := row.Scan(&ex.ID, &ex.Prompt, &ex.Response, &ex.Blueprint, &ex.ContentHash, &source, &ex.ImportedAt)
	if err != nil {
		return nil, err
	}
	ex.Source = source.String
	return ex, nil
}

// UpsertExample inserts or updates an example
func (d *DB) UpsertExample(ex *Example) error {
	query := `
	INSERT INTO examples (` + exampleColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		prompt = excluded.prompt,
		response = excluded.response,
		blueprint = excluded.blueprint,
		content_hash = excluded.content_hash,
		source = excluded.source,
		imported_at = excluded.imported_at
	`

	_, err := d.db.Exec(query,
		ex.ID, ex.Prompt, ex.Response, ex.Blueprint, ex.ContentHash, ex.Source, ex.ImportedAt,
	)
	return err
}

// GetExample retrieves an example by ID. It returns nil when there is none.
func (d *DB) GetExample(id string) (*Example, error) {
	row := d.db.QueryRow(`SELECT `+exampleColumns+` FROM examples WHERE id = ?`, id)
	ex, err := scanExample(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// ListExamples retrieves all examples, most recently imported first
func (d *DB) ListExamples() ([]*Example, error) {
	rows, err := d.db.Query(`SELECT ` + exampleColumns + ` FROM examples ORDER BY imported_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Example
	for rows.Next() {
		ex, err := scanExample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// CountExamples returns the number of stored examples
func (d *DB) CountExamples() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM examples").Scan(&count)
	return count, err
}

// GetContentHash retrieves just the content hash for an example
func (d *DB) GetContentHash(id string) (string, error) {
	var hash string
	err := d.db.QueryRow("SELECT content_hash FROM examples WHERE id = ?", id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}
