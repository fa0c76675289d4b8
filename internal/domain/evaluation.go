package domain

import "time"

// Concern is one flagged gap with the evidence that triggered it.
type Concern struct {
	Type     string `json:"type"`
	Evidence string `json:"evidence"`
}

// Evaluation is one immutable scoring snapshot for a posting.
type Evaluation struct {
	ID                  int64     `json:"id"`
	PostingID           int64     `json:"posting_id"`
	FitScore            int       `json:"fit_score"`
	SeniorityScore      int       `json:"seniority_score"`
	PnLScore            int       `json:"pnl_score"`
	TransformationScore int       `json:"transformation_score"`
	IndustryScore       int       `json:"industry_score"`
	GeoScore            int       `json:"geo_score"`
	Action              string    `json:"action"`
	Summary             string    `json:"summary"`
	Concerns            []Concern `json:"concerns"`
	CreatedAt           time.Time `json:"created_at"`
}
