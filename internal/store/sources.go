package store

import (
	"context"
	"database/sql"
	"fmt"

	"jobmatch-engine/internal/config"
	"jobmatch-engine/internal/domain"
)

type SourceRow struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Endpoint            string  `json:"endpoint"`
	Adapter             string  `json:"adapter"`
	AdapterStatus       string  `json:"adapter_status"`
	ErrorMessage        *string `json:"error_message"`
	LastSuccessfulFetch *string `json:"last_successful_fetch"`
}

// UpsertSource syncs one configured source into the sources table and
// returns its row ID. Endpoint/adapter follow the config; health columns
// are left for the refresh cycle to maintain.
func UpsertSource(ctx context.Context, db *sql.DB, src config.Source) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM sources WHERE name = ?;`, src.Name).Scan(&id)
	switch {
	case err == nil:
		_, err = db.ExecContext(ctx, `
UPDATE sources SET endpoint = ?, adapter = ? WHERE id = ?;`,
			src.Endpoint, src.Adapter, id)
		if err != nil {
			return 0, fmt.Errorf("update source %q: %w", src.Name, err)
		}
		return id, nil
	case err == sql.ErrNoRows:
		res, err := db.ExecContext(ctx, `
INSERT INTO sources (name, endpoint, adapter) VALUES (?, ?, ?);`,
			src.Name, src.Endpoint, src.Adapter)
		if err != nil {
			return 0, fmt.Errorf("insert source %q: %w", src.Name, err)
		}
		return res.LastInsertId()
	default:
		return 0, err
	}
}

// UpdateSourceStatus records the outcome of a refresh cycle. On OK the
// error message is cleared and last_successful_fetch advances; on ERROR the
// previous success timestamp is kept.
func UpdateSourceStatus(ctx context.Context, db *sql.DB, sourceID int64, status string, errMsg string) error {
	var msg any
	if status == domain.SourceError {
		msg = errMsg
	}
	_, err := db.ExecContext(ctx, `
UPDATE sources
SET adapter_status = ?,
    error_message = ?,
    last_successful_fetch = CASE WHEN ? = 'OK' THEN datetime('now') ELSE last_successful_fetch END
WHERE id = ?;`,
		status, msg, status, sourceID)
	return err
}

func ListSources(ctx context.Context, db *sql.DB) ([]SourceRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, name, endpoint, adapter, adapter_status, error_message, last_successful_fetch
FROM sources
ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceRow
	for rows.Next() {
		var s SourceRow
		if err := rows.Scan(&s.ID, &s.Name, &s.Endpoint, &s.Adapter,
			&s.AdapterStatus, &s.ErrorMessage, &s.LastSuccessfulFetch); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
