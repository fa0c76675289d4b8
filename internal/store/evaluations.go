package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"jobmatch-engine/internal/domain"
)

const evaluationHistoryCap = 3

// InsertEvaluation writes a new snapshot and prunes the posting's history
// down to the 3 most recent rows, oldest-first. Insert and prune share a tx
// so a crash can't leave an over-long history.
func InsertEvaluation(ctx context.Context, db *sql.DB, ev domain.Evaluation) error {
	concernsJSON, err := json.Marshal(ev.Concerns)
	if err != nil {
		return fmt.Errorf("marshal concerns: %w", err)
	}
	if ev.Concerns == nil {
		concernsJSON = []byte("[]")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO evaluations
(posting_id, fit_score, seniority_score, pnl_score, transformation_score,
 industry_score, geo_score, action, summary, concerns)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		ev.PostingID, ev.FitScore, ev.SeniorityScore, ev.PnLScore,
		ev.TransformationScore, ev.IndustryScore, ev.GeoScore,
		ev.Action, ev.Summary, string(concernsJSON)); err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}

	// created_at has second resolution; id breaks ties in insert order
	if _, err := tx.ExecContext(ctx, `
DELETE FROM evaluations
WHERE posting_id = ? AND id NOT IN (
  SELECT id FROM evaluations
  WHERE posting_id = ?
  ORDER BY created_at DESC, id DESC
  LIMIT ?
);`, ev.PostingID, ev.PostingID, evaluationHistoryCap); err != nil {
		return fmt.Errorf("prune evaluations: %w", err)
	}

	return tx.Commit()
}

// ListEvaluations returns a posting's retained history, newest first.
func ListEvaluations(ctx context.Context, db *sql.DB, postingID int64) ([]domain.Evaluation, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, posting_id, fit_score, seniority_score, pnl_score,
       transformation_score, industry_score, geo_score, action, summary,
       concerns, created_at
FROM evaluations
WHERE posting_id = ?
ORDER BY created_at DESC, id DESC;`, postingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// LatestEvaluation returns the most recent snapshot or nil if the posting
// has never been scored.
func LatestEvaluation(ctx context.Context, db *sql.DB, postingID int64) (*domain.Evaluation, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, posting_id, fit_score, seniority_score, pnl_score,
       transformation_score, industry_score, geo_score, action, summary,
       concerns, created_at
FROM evaluations
WHERE posting_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1;`, postingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	ev, err := scanEvaluation(rows)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func scanEvaluation(rows *sql.Rows) (domain.Evaluation, error) {
	var ev domain.Evaluation
	var concernsJSON, createdAt string
	if err := rows.Scan(&ev.ID, &ev.PostingID, &ev.FitScore, &ev.SeniorityScore,
		&ev.PnLScore, &ev.TransformationScore, &ev.IndustryScore, &ev.GeoScore,
		&ev.Action, &ev.Summary, &concernsJSON, &createdAt); err != nil {
		return ev, err
	}
	_ = json.Unmarshal([]byte(concernsJSON), &ev.Concerns)
	ev.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	return ev, nil
}
