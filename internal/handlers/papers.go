package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/studyshelf/internal/catalog"
	"github.com/lehigh-university-libraries/studyshelf/internal/codec"
	"github.com/lehigh-university-libraries/studyshelf/internal/models"
)

// multipartOverhead leaves room for the form fields around the file.
const multipartOverhead = 1 << 20

// PaperView is a paper without its inline payload.
type PaperView struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	SubjectID  models.SubjectID `json:"subjectId"`
	Type       models.PaperType `json:"type"`
	UploadDate string           `json:"uploadDate"`
	Attachment string           `json:"attachment"` // embedded, link or demo
	URL        string           `json:"url,omitempty"`
	Bookmarked bool             `json:"bookmarked"`
}

func viewOf(p models.Paper, bookmarked bool) PaperView {
	v := PaperView{
		ID:         p.ID,
		Title:      p.Title,
		SubjectID:  p.SubjectID,
		Type:       p.Type,
		UploadDate: p.UploadDate,
		Bookmarked: bookmarked,
	}
	switch resolved := codec.Resolve(p.PDFURL); {
	case resolved == codec.DemoPDF && !codec.IsEmbedded(p.PDFURL):
		v.Attachment = "demo"
	case codec.IsEmbedded(resolved):
		v.Attachment = "embedded"
	default:
		v.Attachment = "link"
		v.URL = resolved
	}
	return v
}

func (h *Handler) views(papers []models.Paper) []PaperView {
	out := make([]PaperView, 0, len(papers))
	for _, p := range papers {
		out = append(out, viewOf(p, h.app.State.IsBookmarked(p.ID)))
	}
	return out
}

// HandlePapers lists papers for a view or uploads a new one.
func (h *Handler) HandlePapers(w http.ResponseWriter, r *http.Request, user models.User) {
	switch r.Method {
	case "GET":
		q := catalog.Query{
			View:      catalog.ParseView(r.URL.Query().Get("view")),
			Search:    r.URL.Query().Get("search"),
			Bookmarks: h.app.State.Bookmarks(),
		}
		if s := r.URL.Query().Get("subject"); s != "" {
			subject, ok := models.ParseSubject(s)
			if !ok {
				h.writeError(w, fmt.Sprintf("Unknown subject %q", s), http.StatusBadRequest)
				return
			}
			q.Subject = subject
		}
		if q.View == catalog.ViewSubject && q.Subject == "" {
			h.writeError(w, "The subject view needs a subject", http.StatusBadRequest)
			return
		}
		h.writeJSON(w, h.views(catalog.Filter(h.app.State.Papers(), q)))
	case "POST":
		if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
			h.handleLinkUpload(w, r, user)
			return
		}
		h.handleFileUpload(w, r, user)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleLinkUpload(w http.ResponseWriter, r *http.Request, user models.User) {
	var request struct {
		Title   string `json:"title"`
		Subject string `json:"subject"`
		Type    string `json:"type"`
		URL     string `json:"url"`
	}
	if !h.decodeJSON(w, r, maxLinkBody, &request) {
		return
	}

	paper, err := h.app.Uploader.Upload(r.Context(), user, catalog.UploadRequest{
		Title:   request.Title,
		Subject: models.SubjectID(request.Subject),
		Type:    models.PaperType(request.Type),
		URL:     request.URL,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, viewOf(paper, false))
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request, user models.User) {
	if !user.IsAdmin {
		h.writeDomainError(w, catalog.ErrForbidden)
		return
	}
	if r.ContentLength > codec.MaxAttachmentSize+multipartOverhead {
		h.writeError(w, msgTooLarge, http.StatusRequestEntityTooLarge)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, codec.MaxAttachmentSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(w, msgTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Invalid upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := catalog.UploadRequest{
		Title:   r.FormValue("title"),
		Subject: models.SubjectID(r.FormValue("subject")),
		Type:    models.PaperType(r.FormValue("type")),
		URL:     r.FormValue("url"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		h.writeError(w, msgReadFailed, http.StatusBadRequest)
		return
	default:
		defer file.Close()
		if header.Size > codec.MaxAttachmentSize {
			h.writeError(w, msgTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		req.File = file
		req.FileSize = header.Size
		// Browsers fall back to octet-stream; sniff those instead.
		if ct := header.Header.Get("Content-Type"); ct != "application/octet-stream" {
			req.MIMEType = ct
		}
	}

	paper, err := h.app.Uploader.Upload(r.Context(), user, req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, viewOf(paper, false))
}

// HandlePaperDetail serves /api/papers/<id>[/preview|/download].
func (h *Handler) HandlePaperDetail(w http.ResponseWriter, r *http.Request, user models.User) {
	parts := pathParts(r.URL.Path, "/api/papers/")
	if len(parts) == 0 || len(parts) > 2 {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	paper, ok := h.app.State.Paper(parts[0])
	if !ok {
		h.writeDomainError(w, catalog.ErrPaperNotFound)
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "preview":
			h.handlePreview(w, r, paper)
		case "download":
			h.handleDownload(w, r, paper)
		default:
			h.writeError(w, "Not found", http.StatusNotFound)
		}
		return
	}

	switch r.Method {
	case "GET":
		h.writeJSON(w, viewOf(paper, h.app.State.IsBookmarked(paper.ID)))
	case "DELETE":
		if err := h.app.Uploader.Delete(user, paper.ID); err != nil {
			h.writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handlePreview registers a short-lived blob handle for an embedded
// attachment. Links are returned as they are.
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request, paper models.Paper) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	url := codec.Resolve(paper.PDFURL)
	if !codec.IsEmbedded(url) {
		h.writeJSON(w, map[string]any{"url": url})
		return
	}

	handle, err := h.app.Blobs.Open(url)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, handle)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request, paper models.Paper) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	url := codec.Resolve(paper.PDFURL)
	if !codec.IsEmbedded(url) {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	att, err := codec.Decode(url)
	if err != nil {
		h.writeError(w, msgViewerUnavailable, http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", att.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", codec.DownloadName(paper.Title)))
	w.Header().Set("Content-Length", fmt.Sprint(len(att.Data)))
	if _, err := w.Write(att.Data); err != nil {
		h.writeError(w, "Failed to write download: "+err.Error(), http.StatusInternalServerError)
	}
}
