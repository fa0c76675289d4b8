package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"jobmatch-engine/internal/domain"
)

// DBTX lets reconciliation helpers run on either the pool or an open
// transaction; one source's upserts and mark-missing must share a tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Posting struct {
	ID                 int64  `json:"id"`
	SourceID           int64  `json:"source_id"`
	SourceName         string `json:"source_name"`
	ExternalID         string `json:"external_id"`
	Title              string `json:"title"`
	Location           string `json:"location"`
	Department         string `json:"department,omitempty"`
	Description        string `json:"description"`
	URL                string `json:"url"`
	PartialDescription bool   `json:"partial_description"`
	Active             bool   `json:"active"`
	DateFound          string `json:"date_found"`
	LastSeenAt         string `json:"last_seen_at"`
	UserReviewStatus   string `json:"user_review_status"`
}

// UpsertPosting inserts a first-seen posting (active, review NEW) or
// refreshes the content fields of a known one. user_review_status is
// user-owned and is never written on the update path.
func UpsertPosting(ctx context.Context, q DBTX, sourceID int64, raw domain.RawPosting) (id int64, isNew bool, err error) {
	err = q.QueryRowContext(ctx, `
SELECT id FROM postings WHERE source_id = ? AND external_id = ?;`,
		sourceID, raw.ExternalID).Scan(&id)

	switch {
	case err == nil:
		_, err = q.ExecContext(ctx, `
UPDATE postings
SET title = ?, location = ?, department = ?, description = ?, url = ?,
    partial_description = ?, active = 1, last_seen_at = datetime('now')
WHERE id = ?;`,
			raw.Title, raw.Location, nullIfEmpty(raw.Department), raw.Description,
			raw.URL, boolToInt(raw.PartialDescription), id)
		if err != nil {
			return 0, false, fmt.Errorf("update posting %s: %w", raw.ExternalID, err)
		}
		return id, false, nil

	case err == sql.ErrNoRows:
		res, err := q.ExecContext(ctx, `
INSERT INTO postings
(source_id, external_id, title, location, department, description, url, partial_description)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
			sourceID, raw.ExternalID, raw.Title, raw.Location,
			nullIfEmpty(raw.Department), raw.Description, raw.URL,
			boolToInt(raw.PartialDescription))
		if err != nil {
			return 0, false, fmt.Errorf("insert posting %s: %w", raw.ExternalID, err)
		}
		id, err = res.LastInsertId()
		return id, true, err

	default:
		return 0, false, err
	}
}

// MarkMissingInactive flips active=0 for every still-active posting of the
// source whose external ID was not in the fetched set. An empty seen set
// deactivates everything: an adapter that returns zero postings is treated
// as a truly empty board, not a failure (failures arrive as errors).
// Chunked at 900 IDs to stay under SQLite's parameter limit.
func MarkMissingInactive(ctx context.Context, q DBTX, sourceID int64, seenExternalIDs []string) error {
	if len(seenExternalIDs) == 0 {
		_, err := q.ExecContext(ctx, `
UPDATE postings SET active = 0 WHERE source_id = ? AND active = 1;`, sourceID)
		return err
	}

	const chunkSize = 900
	for i := 0; i < len(seenExternalIDs); i += chunkSize {
		end := i + chunkSize
		if end > len(seenExternalIDs) {
			end = len(seenExternalIDs)
		}
		chunk := seenExternalIDs[i:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, 0, len(chunk)+1)
		args = append(args, sourceID)
		for _, id := range chunk {
			args = append(args, id)
		}

		query := fmt.Sprintf(`
UPDATE postings
SET active = 0
WHERE source_id = ? AND external_id NOT IN (%s) AND active = 1;`, placeholders)
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("mark missing inactive: %w", err)
		}
	}
	return nil
}

// GetPostingsByIDs loads postings (with source name) for scoring after a
// refresh. Chunked like MarkMissingInactive.
func GetPostingsByIDs(ctx context.Context, db *sql.DB, ids []int64) ([]Posting, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var out []Posting
	const chunkSize = 900
	for i := 0; i < len(ids); i += chunkSize {
		end := i + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[i:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, 0, len(chunk))
		for _, id := range chunk {
			args = append(args, id)
		}

		query := fmt.Sprintf(`
SELECT p.id, p.source_id, s.name, p.external_id, p.title, p.location,
       COALESCE(p.department, ''), p.description, p.url, p.partial_description,
       p.active, p.date_found, p.last_seen_at, p.user_review_status
FROM postings p
JOIN sources s ON p.source_id = s.id
WHERE p.id IN (%s);`, placeholders)

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		batch, err := scanPostings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func GetPosting(ctx context.Context, db *sql.DB, id int64) (*Posting, error) {
	rows, err := db.QueryContext(ctx, `
SELECT p.id, p.source_id, s.name, p.external_id, p.title, p.location,
       COALESCE(p.department, ''), p.description, p.url, p.partial_description,
       p.active, p.date_found, p.last_seen_at, p.user_review_status
FROM postings p
JOIN sources s ON p.source_id = s.id
WHERE p.id = ?;`, id)
	if err != nil {
		return nil, err
	}
	out, err := scanPostings(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, sql.ErrNoRows
	}
	return &out[0], nil
}

// UpdateReviewStatus is the only write path for user_review_status.
func UpdateReviewStatus(ctx context.Context, db *sql.DB, postingID int64, status string) error {
	res, err := db.ExecContext(ctx, `
UPDATE postings SET user_review_status = ? WHERE id = ?;`, status, postingID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanPostings(rows *sql.Rows) ([]Posting, error) {
	defer rows.Close()
	var out []Posting
	for rows.Next() {
		var p Posting
		var partial, active int
		if err := rows.Scan(&p.ID, &p.SourceID, &p.SourceName, &p.ExternalID,
			&p.Title, &p.Location, &p.Department, &p.Description, &p.URL,
			&partial, &active, &p.DateFound, &p.LastSeenAt, &p.UserReviewStatus); err != nil {
			return nil, err
		}
		p.PartialDescription = partial != 0
		p.Active = active != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
