package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/studyshelf/internal/app"
	"github.com/lehigh-university-libraries/studyshelf/internal/blobs"
	"github.com/lehigh-university-libraries/studyshelf/internal/catalog"
	"github.com/lehigh-university-libraries/studyshelf/internal/codec"
	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/lehigh-university-libraries/studyshelf/internal/session"
	"github.com/lehigh-university-libraries/studyshelf/internal/tutor"
)

const (
	msgTooLarge          = "File too large! Please upload a PDF smaller than 15MB to ensure it saves correctly."
	msgReadFailed        = "Failed to read file."
	msgViewerUnavailable = "Could not open PDF viewer."
	msgMalformed         = "The attached PDF could not be read."
)

const (
	// maxLinkBody fits a JSON upload carrying a full-size data URI.
	maxLinkBody = 4*(codec.MaxAttachmentSize+2)/3 + 64<<10
	// maxTutorBody bounds a chat message.
	maxTutorBody = 64 << 10
)

type Handler struct {
	app *app.App

	chatMu sync.Mutex
	chat   *tutor.Conversation
}

func New(a *app.App) *Handler {
	return &Handler{app: a}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", h.HandleSession)
	mux.HandleFunc("/api/papers", h.requireUser(h.HandlePapers))
	mux.HandleFunc("/api/papers/", h.requireUser(h.HandlePaperDetail))
	mux.HandleFunc("/api/bookmarks", h.requireUser(h.HandleBookmarks))
	mux.HandleFunc("/api/bookmarks/", h.requireUser(h.HandleBookmarkToggle))
	mux.HandleFunc("/api/announcements", h.requireUser(h.HandleAnnouncements))
	mux.HandleFunc("/api/status", h.HandleStatus)
	mux.HandleFunc("/api/tutor/", h.requireUser(h.HandleTutor))
	mux.HandleFunc("/blob/", h.HandleBlob)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

type userHandler func(w http.ResponseWriter, r *http.Request, user models.User)

func (h *Handler) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _, err := h.app.Sessions.Current()
		if err != nil {
			h.writeError(w, "Login required", http.StatusUnauthorized)
			return
		}
		next(w, r, user)
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Debug(message, "status", code)
	}
	http.Error(w, message, code)
}

// writeDomainError maps package errors to status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrForbidden):
		h.writeError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, catalog.ErrPaperNotFound), errors.Is(err, blobs.ErrNotFound):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, catalog.ErrDuplicateID):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, codec.ErrTooLarge):
		h.writeError(w, msgTooLarge, http.StatusRequestEntityTooLarge)
	case errors.Is(err, codec.ErrMalformed):
		h.writeError(w, msgMalformed, http.StatusBadRequest)
	case errors.Is(err, catalog.ErrTitleRequired),
		errors.Is(err, catalog.ErrUnknownSubject),
		errors.Is(err, catalog.ErrUnknownType),
		errors.Is(err, session.ErrEmptyEmail),
		errors.Is(err, tutor.ErrEmptyMessage):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, blobs.ErrViewerUnavailable):
		h.writeError(w, msgViewerUnavailable, http.StatusUnprocessableEntity)
	default:
		h.writeError(w, "Internal server error: "+err.Error(), http.StatusInternalServerError)
	}
}

// decodeJSON reads a JSON body of at most limit bytes into v and writes the
// error response itself. It reports whether v was filled.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// pathParts splits what follows prefix into non-empty segments.
func pathParts(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
