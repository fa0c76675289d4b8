package httpapi

import (
	"encoding/json"
	"net/http"

	"jobmatch-engine/internal/secrets"
)

type SecretsHandler struct{}

type setAdminTokenReq struct {
	Token string `json:"token"`
}

func (h SecretsHandler) SetAdminToken(w http.ResponseWriter, r *http.Request) {
	var req setAdminTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := secrets.SetAdminToken(req.Token); err != nil {
		http.Error(w, "failed to store token: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
