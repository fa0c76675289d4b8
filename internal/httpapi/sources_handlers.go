package httpapi

import (
	"database/sql"
	"net/http"

	"jobmatch-engine/internal/store"
)

type SourcesHandler struct {
	DB *sql.DB
}

func (h SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := store.ListSources(r.Context(), h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if rows == nil {
		rows = []store.SourceRow{}
	}
	writeJSON(w, rows)
}
