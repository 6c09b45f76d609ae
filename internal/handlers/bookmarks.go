package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/studyshelf/internal/catalog"
	"github.com/lehigh-university-libraries/studyshelf/internal/models"
)

// HandleBookmarks lists the bookmarked papers.
func (h *Handler) HandleBookmarks(w http.ResponseWriter, r *http.Request, _ models.User) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	papers := catalog.Filter(h.app.State.Papers(), catalog.Query{
		View:      catalog.ViewBookmarks,
		Bookmarks: h.app.State.Bookmarks(),
	})
	h.writeJSON(w, h.views(papers))
}

// HandleBookmarkToggle flips the bookmark on /api/bookmarks/<id>.
func (h *Handler) HandleBookmarkToggle(w http.ResponseWriter, r *http.Request, _ models.User) {
	parts := pathParts(r.URL.Path, "/api/bookmarks/")
	if len(parts) != 1 {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case "POST":
		bookmarked, err := h.app.State.ToggleBookmark(parts[0])
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		h.writeJSON(w, map[string]any{"id": parts[0], "bookmarked": bookmarked})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleAnnouncements lists announcements, newest first.
func (h *Handler) HandleAnnouncements(w http.ResponseWriter, r *http.Request, _ models.User) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.app.State.Announcements())
}
