package store

import (
	"context"
	"database/sql"

	"jobmatch-engine/internal/domain"
)

type ListPostingsOpts struct {
	MinAction string // APPLY | WATCH | "" (everything)
	Limit     int
	Offset    int
}

// RankedPosting is one row of the main listing: an active posting joined to
// its latest evaluation. Evaluation fields are pointers because a posting
// can exist briefly before its first scoring pass.
type RankedPosting struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	SourceName       string  `json:"source_name"`
	Location         string  `json:"location"`
	URL              string  `json:"url"`
	UserReviewStatus string  `json:"user_review_status"`
	FitScore         *int    `json:"fit_score"`
	Action           *string `json:"action"`
	Summary          *string `json:"summary"`
}

// latestEvalJoin picks one evaluation per posting: newest created_at, id as
// the tie-break (ids are monotone, so ties resolve in insert order).
const latestEvalJoin = `
LEFT JOIN evaluations e ON e.id = (
  SELECT e2.id FROM evaluations e2
  WHERE e2.posting_id = p.id
  ORDER BY e2.created_at DESC, e2.id DESC
  LIMIT 1
)`

// ListActivePostings returns active postings with their latest evaluation,
// ordered fit score desc then first-seen desc. min_action=APPLY narrows to
// APPLY; min_action=WATCH includes APPLY and WATCH.
func ListActivePostings(ctx context.Context, db *sql.DB, opts ListPostingsOpts) ([]RankedPosting, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	query := `
SELECT p.id, p.title, s.name, p.location, p.url, p.user_review_status,
       e.fit_score, e.action, e.summary
FROM postings p
JOIN sources s ON p.source_id = s.id` + latestEvalJoin + `
WHERE p.active = 1`

	var args []any
	switch opts.MinAction {
	case domain.ActionApply:
		query += ` AND e.action = 'APPLY'`
	case domain.ActionWatch:
		query += ` AND e.action IN ('APPLY', 'WATCH')`
	}

	query += `
ORDER BY e.fit_score DESC, p.date_found DESC
LIMIT ? OFFSET ?;`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RankedPosting
	for rows.Next() {
		var r RankedPosting
		var fit sql.NullInt64
		var action, summary sql.NullString
		if err := rows.Scan(&r.ID, &r.Title, &r.SourceName, &r.Location, &r.URL,
			&r.UserReviewStatus, &fit, &action, &summary); err != nil {
			return nil, err
		}
		if fit.Valid {
			v := int(fit.Int64)
			r.FitScore = &v
		}
		if action.Valid {
			r.Action = &action.String
		}
		if summary.Valid {
			r.Summary = &summary.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func CountActivePostings(ctx context.Context, db *sql.DB, minAction string) (int, error) {
	query := `
SELECT COUNT(*)
FROM postings p` + latestEvalJoin + `
WHERE p.active = 1`
	switch minAction {
	case domain.ActionApply:
		query += ` AND e.action = 'APPLY'`
	case domain.ActionWatch:
		query += ` AND e.action IN ('APPLY', 'WATCH')`
	}

	var n int
	err := db.QueryRowContext(ctx, query+";").Scan(&n)
	return n, err
}

type Stats struct {
	Apply int `json:"apply"`
	Watch int `json:"watch"`
	Skip  int `json:"skip"`
	Total int `json:"total"`
}

// GetStats counts active postings by their latest action label. Postings
// not yet scored are excluded, matching the listing behavior.
func GetStats(ctx context.Context, db *sql.DB) (Stats, error) {
	rows, err := db.QueryContext(ctx, `
SELECT e.action, COUNT(*)
FROM postings p`+latestEvalJoin+`
WHERE p.active = 1 AND e.action IS NOT NULL
GROUP BY e.action;`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return Stats{}, err
		}
		switch action {
		case domain.ActionApply:
			st.Apply = n
		case domain.ActionWatch:
			st.Watch = n
		case domain.ActionSkip:
			st.Skip = n
		}
		st.Total += n
	}
	return st, rows.Err()
}
