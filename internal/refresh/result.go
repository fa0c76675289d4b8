package refresh

// SourceResult is the outcome of one source's fetch-and-reconcile step.
type SourceResult struct {
	SourceID     int64   `json:"source_id"`
	SourceName   string  `json:"source_name"`
	Status       string  `json:"status"` // OK | ERROR
	Error        string  `json:"error,omitempty"`
	NewCount     int     `json:"new_count"`
	UpdatedCount int     `json:"updated_count"`
	TouchedIDs   []int64 `json:"touched_ids"`
}

// Result is one full refresh cycle: per-source outcomes plus the union of
// touched posting IDs that were re-scored.
type Result struct {
	Sources     []SourceResult `json:"sources"`
	TouchedIDs  []int64        `json:"touched_ids"`
	ScoredCount int            `json:"scored_count"`
}

// Status is the last-cycle snapshot served by /refresh/status.
type Status struct {
	LastRunAt   string `json:"last_run_at"`
	LastOkAt    string `json:"last_ok_at"`
	LastError   string `json:"last_error"`
	LastNew     int    `json:"last_new"`
	LastUpdated int    `json:"last_updated"`
	LastScored  int    `json:"last_scored"`
	Running     bool   `json:"running"`
}
