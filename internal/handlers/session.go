package handlers

import (
	"encoding/json"
	"net/http"
)

// HandleSession reports, starts or ends the local session.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		user, generation, err := h.app.Sessions.Current()
		if err != nil {
			h.writeJSON(w, map[string]any{"user": nil, "generation": generation})
			return
		}
		h.writeJSON(w, map[string]any{"user": user, "generation": generation})
	case "POST":
		var request struct {
			Email string `json:"email"`
			Guest bool   `json:"guest"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if request.Guest {
			h.writeJSON(w, map[string]any{"user": h.app.Sessions.LoginGuest()})
			return
		}
		user, err := h.app.Sessions.Login(request.Email)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		h.writeJSON(w, map[string]any{"user": user})
	case "DELETE":
		if err := h.app.Sessions.Logout(); err != nil {
			h.writeError(w, "Failed to clear session: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleStatus reports the saving indicator and the latest save outcome.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.app.Status())
}
