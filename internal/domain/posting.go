package domain

// RawPosting is what an adapter hands back for one job listing.
//
// Adapter contract:
//   - ExternalID must be the source's own requisition/job identifier.
//   - URL must be the canonical link to the posting.
//   - PartialDescription is set when the full text could not be retrieved.
//   - Adapters return an error when they cannot determine the listing set;
//     an empty slice with a nil error means the board is genuinely empty
//     (the reconciler will deactivate everything for that source).
type RawPosting struct {
	ExternalID         string
	Title              string
	Location           string
	Department         string
	Description        string // may contain HTML; normalized before persistence
	URL                string
	PartialDescription bool
}

// Review status values owned by the user, never touched by a refresh.
const (
	ReviewNew     = "NEW"
	ReviewRead    = "READ"
	ReviewIgnored = "IGNORED"
)

// Action tiers produced by the scoring engine.
const (
	ActionApply = "APPLY"
	ActionWatch = "WATCH"
	ActionSkip  = "SKIP"
)

// Source health values recorded after each refresh cycle.
const (
	SourceOK    = "OK"
	SourceError = "ERROR"
)

func ValidReviewStatus(s string) bool {
	switch s {
	case ReviewNew, ReviewRead, ReviewIgnored:
		return true
	}
	return false
}
