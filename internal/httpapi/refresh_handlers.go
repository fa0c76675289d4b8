package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"sync/atomic"
	"time"

	"jobmatch-engine/internal/config"
	"jobmatch-engine/internal/events"
	"jobmatch-engine/internal/refresh"
)

type RefreshHandler struct {
	DB            *sql.DB
	CfgVal        *atomic.Value // config.Config
	RefreshStatus *atomic.Value // refresh.Status
	Running       *atomic.Bool
	Hub           *events.Hub
	RunRefresh    func(ctx context.Context, cfg config.Config, onNewPosting func(int64)) (refresh.Result, error)
}

func (h RefreshHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.RefreshStatus.Load().(refresh.Status)
	writeJSON(w, st)
}

// Run kicks off a cycle in the background and returns immediately. A cycle
// already in flight is not stacked; callers poll /refresh/status. The run
// flag is claimed with a CompareAndSwap, so two triggers landing together
// can't both pass the check.
func (h RefreshHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.Running.CompareAndSwap(false, true) {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	st := h.RefreshStatus.Load().(refresh.Status)
	h.RefreshStatus.Store(refresh.Status{
		LastRunAt:   time.Now().Format(time.RFC3339),
		Running:     true,
		LastError:   "",
		LastNew:     0,
		LastUpdated: 0,
		LastScored:  0,
		LastOkAt:    st.LastOkAt,
	})

	reqID := RequestIDFrom(r.Context())
	go func() {
		// Released after the final status store, so a new claimant always
		// sees a settled snapshot.
		defer h.Running.Store(false)

		cfg := h.CfgVal.Load().(config.Config)
		res, err := h.RunRefresh(context.Background(), cfg, func(id int64) {
			h.Hub.Publish(events.MakeEvent(reqID, "posting_created", 1, map[string]any{"id": id}))
		})

		now := time.Now().Format(time.RFC3339)
		next := h.RefreshStatus.Load().(refresh.Status)
		next.Running = false
		next.LastRunAt = now
		for _, s := range res.Sources {
			next.LastNew += s.NewCount
			next.LastUpdated += s.UpdatedCount
		}
		next.LastScored = res.ScoredCount
		if err != nil {
			next.LastError = err.Error()
		} else {
			next.LastError = ""
			next.LastOkAt = now
		}
		h.RefreshStatus.Store(next)

		h.Hub.Publish(events.MakeEvent(reqID, "refresh_completed", 1, map[string]any{
			"new":     next.LastNew,
			"updated": next.LastUpdated,
			"scored":  next.LastScored,
			"error":   next.LastError,
		}))
	}()

	writeJSON(w, map[string]any{"ok": true})
}
