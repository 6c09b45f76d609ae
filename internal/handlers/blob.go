package handlers

import (
	"fmt"
	"net/http"
)

// HandleBlob serves or revokes a preview handle.
func (h *Handler) HandleBlob(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/blob/")
	if len(parts) != 1 {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}
	id := parts[0]

	switch r.Method {
	case "GET":
		att, err := h.app.Blobs.Get(id)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", att.MIMEType)
		w.Header().Set("Content-Length", fmt.Sprint(len(att.Data)))
		w.Header().Set("Cache-Control", "private, no-store")
		if _, err := w.Write(att.Data); err != nil {
			h.writeError(w, "Failed to write blob: "+err.Error(), http.StatusInternalServerError)
		}
	case "DELETE":
		h.app.Blobs.Revoke(id)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
