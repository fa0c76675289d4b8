package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"jobmatch-engine/internal/domain"
	"jobmatch-engine/internal/events"
	"jobmatch-engine/internal/store"
)

type JobsHandler struct {
	DB  *sql.DB
	Hub *events.Hub
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	minAction := q.Get("min_action")
	switch minAction {
	case "", domain.ActionApply, domain.ActionWatch:
	default:
		WriteError(w, r, http.StatusBadRequest, "bad_min_action", "min_action must be APPLY or WATCH")
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, err := store.ListActivePostings(r.Context(), h.DB, store.ListPostingsOpts{
		MinAction: minAction, Limit: limit, Offset: offset,
	})
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	total, err := store.CountActivePostings(r.Context(), h.DB, minAction)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if items == nil {
		items = []store.RankedPosting{}
	}
	writeJSON(w, map[string]any{"items": items, "total": total})
}

// GetByPath serves GET /jobs/{id}: the posting plus its evaluation history,
// newest first.
func (h JobsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	id, rest, ok := jobIDFromPath(r.URL.Path)
	if !ok || rest != "" {
		WriteError(w, r, http.StatusBadRequest, "bad_id", "invalid posting id")
		return
	}

	posting, err := store.GetPosting(r.Context(), h.DB, id)
	if errors.Is(err, sql.ErrNoRows) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such posting")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	evals, err := store.ListEvaluations(r.Context(), h.DB, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if evals == nil {
		evals = []domain.Evaluation{}
	}
	writeJSON(w, map[string]any{"posting": posting, "evaluations": evals})
}

type patchReviewReq struct {
	Status string `json:"status"`
}

// PatchReview serves PATCH /jobs/{id}/review. The review status is the one
// posting field the user owns; refresh cycles never touch it.
func (h JobsHandler) PatchReview(w http.ResponseWriter, r *http.Request) {
	id, rest, ok := jobIDFromPath(r.URL.Path)
	if !ok || rest != "review" {
		WriteError(w, r, http.StatusBadRequest, "bad_id", "invalid posting id")
		return
	}

	var req patchReviewReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if !domain.ValidReviewStatus(req.Status) {
		WriteError(w, r, http.StatusBadRequest, "bad_status", "status must be NEW, READ or IGNORED")
		return
	}

	err := store.UpdateReviewStatus(r.Context(), h.DB, id, req.Status)
	if errors.Is(err, sql.ErrNoRows) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such posting")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, "review_updated", 1, map[string]any{"id": id, "status": req.Status}))
	writeJSON(w, map[string]any{"ok": true, "id": id, "status": req.Status})
}

func (h JobsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetStats(r.Context(), h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, stats)
}

// jobIDFromPath splits "/jobs/{id}" or "/jobs/{id}/{rest}".
func jobIDFromPath(path string) (id int64, rest string, ok bool) {
	s := strings.TrimPrefix(path, "/jobs/")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s, rest = s[:i], strings.Trim(s[i+1:], "/")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, rest, true
}
