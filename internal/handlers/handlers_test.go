package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/studyshelf/internal/app"
	"github.com/lehigh-university-libraries/studyshelf/internal/blobs"
	"github.com/lehigh-university-libraries/studyshelf/internal/codec"
	"github.com/lehigh-university-libraries/studyshelf/internal/config"
	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*app.App, http.Handler) {
	t.Helper()
	cfg := config.Default()
	cfg.Ephemeral = true
	cfg.QuotaBytes = 0
	cfg.Debounce = 10 * time.Millisecond
	cfg.MinSaving = -1
	cfg.Tutor.Provider = "none"

	a, err := app.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.Close(ctx)
	})
	return a, New(a).Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(data))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func login(t *testing.T, h http.Handler, email string) {
	t.Helper()
	w := do(t, h, "POST", "/api/session", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest("POST", "/api/papers", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestSession(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, "GET", "/api/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[map[string]any](t, w)["user"])

	w = do(t, h, "POST", "/api/session", map[string]string{"email": " SuryaThakur00732@gmail.com "})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct{ User models.User }](t, w)
	assert.True(t, got.User.IsAdmin)

	w = do(t, h, "POST", "/api/session", map[string]any{"guest": true})
	got = decode[struct{ User models.User }](t, w)
	assert.False(t, got.User.IsAdmin)
	assert.Equal(t, "guest@app.com", got.User.Email)

	w = do(t, h, "POST", "/api/session", map[string]string{"email": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/api/session", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/api/papers", nil).Code)
}

func TestListPapers(t *testing.T) {
	_, h := newTestServer(t)
	login(t, h, "student@example.com")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"home", "", []string{"1", "2", "3", "4"}},
		{"subject", "?view=subject&subject=science", []string{"2"}},
		{"search", "?search=BASICS", []string{"4"}},
		{"subject search miss", "?view=subject&subject=Maths&search=motion", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "GET", "/api/papers"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			ids := []string{}
			for _, p := range decode[[]PaperView](t, w) {
				ids = append(ids, p.ID)
				assert.Equal(t, "demo", p.Attachment)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/papers?subject=Sanskrit", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/papers?view=subject", nil).Code)
}

func TestUploadFile(t *testing.T) {
	a, h := newTestServer(t)
	login(t, h, "lalitrajputrana0@gmail.com")

	pdf, err := codec.Decode(codec.DemoPDF)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, multipartUpload(t, map[string]string{
		"title":   "Science Mid-Term 2024",
		"subject": "Science",
		"type":    "Full Paper",
	}, "midterm.pdf", pdf.Data))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	view := decode[PaperView](t, w)
	assert.Equal(t, "embedded", view.Attachment)
	assert.Equal(t, models.PaperFull, view.Type)

	papers := a.State.Papers()
	assert.Equal(t, view.ID, papers[0].ID, "new papers are prepended")
	assert.Equal(t, "New Science paper added: Science Mid-Term 2024", a.State.Announcements()[0].Text)

	att, err := codec.Decode(papers[0].PDFURL)
	require.NoError(t, err)
	assert.Equal(t, pdf.Data, att.Data)
	assert.Equal(t, "application/pdf", att.MIMEType)
}

func TestUploadRejections(t *testing.T) {
	_, h := newTestServer(t)

	t.Run("non admin", func(t *testing.T) {
		login(t, h, "student@example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, multipartUpload(t, map[string]string{"title": "x", "subject": "Maths"}, "x.pdf", []byte("%PDF-1.4")))
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = do(t, h, "POST", "/api/papers", map[string]string{"title": "x", "subject": "Maths"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	login(t, h, "lalitrajputrana0@gmail.com")

	t.Run("oversize", func(t *testing.T) {
		w := httptest.NewRecorder()
		big := bytes.Repeat([]byte("a"), codec.MaxAttachmentSize+1)
		h.ServeHTTP(w, multipartUpload(t, map[string]string{"title": "Huge", "subject": "Maths"}, "huge.pdf", big))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "File too large!")
	})

	t.Run("missing title", func(t *testing.T) {
		w := do(t, h, "POST", "/api/papers", map[string]string{"title": "  ", "subject": "Maths"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown subject", func(t *testing.T) {
		w := do(t, h, "POST", "/api/papers", map[string]string{"title": "x", "subject": "Latin"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLinkUploadWithoutFileUsesDemo(t *testing.T) {
	a, h := newTestServer(t)
	login(t, h, "lalitrajputrana0@gmail.com")

	w := do(t, h, "POST", "/api/papers", map[string]string{"title": "Grammar Basics", "subject": "English"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, codec.DemoPDF, a.State.Papers()[0].PDFURL)

	w = do(t, h, "POST", "/api/papers", map[string]string{"title": "Map Work", "subject": "SST", "url": "https://example.com/map.pdf"})
	require.Equal(t, http.StatusCreated, w.Code)
	view := decode[PaperView](t, w)
	assert.Equal(t, "link", view.Attachment)
	assert.Equal(t, "https://example.com/map.pdf", view.URL)
}

func TestLinkUploadRejectsBadDataURLs(t *testing.T) {
	a, h := newTestServer(t)
	login(t, h, "student@example.com")

	// Just past the decoded size gate but inside the body limit.
	justOver := base64.StdEncoding.EncodedLen(codec.MaxAttachmentSize) + 4096

	tests := []struct {
		name string
		url  string
		code int
		msg  string
	}{
		{"malformed", "data:application/pdf;base64,!!!", http.StatusBadRequest, "The attached PDF could not be read."},
		{"over attachment limit", "data:application/pdf;base64," + strings.Repeat("A", justOver), http.StatusRequestEntityTooLarge, "File too large!"},
		{"over body limit", "data:application/pdf;base64," + strings.Repeat("A", 22*1024*1024), http.StatusRequestEntityTooLarge, "Request body too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/api/papers", map[string]string{"title": "Notes", "subject": "Maths", "url": tt.url})
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.msg)
		})
	}
	assert.Len(t, a.State.Papers(), 4)
}

func TestPreviewAndBlob(t *testing.T) {
	_, h := newTestServer(t)
	login(t, h, "student@example.com")

	w := do(t, h, "POST", "/api/papers/1/preview", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	handle := decode[blobs.Handle](t, w)
	assert.Equal(t, "application/pdf", handle.MIMEType)

	w = do(t, h, "GET", handle.URL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", handle.URL, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", handle.URL, nil).Code)

	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/api/papers/nope/preview", nil).Code)
}

func TestPreviewMalformed(t *testing.T) {
	a, h := newTestServer(t)
	login(t, h, "student@example.com")

	// Older stores may still hold attachments saved before uploads were checked.
	_, err := a.State.Update(func(snap *models.Snapshot) error {
		snap.Papers = append(snap.Papers, models.Paper{
			ID: "bad", Title: "Broken", SubjectID: models.SubjectAI, PDFURL: "data:application/pdf;base64,@@@",
		})
		return nil
	})
	require.NoError(t, err)

	w := do(t, h, "POST", "/api/papers/bad/preview", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Could not open PDF viewer.")
}

func TestDownload(t *testing.T) {
	_, h := newTestServer(t)
	login(t, h, "student@example.com")

	w := do(t, h, "GET", "/api/papers/3/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="French_Revolution_Full_Summary.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestBookmarks(t *testing.T) {
	_, h := newTestServer(t)
	login(t, h, "student@example.com")

	w := do(t, h, "POST", "/api/bookmarks/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["bookmarked"])

	w = do(t, h, "GET", "/api/bookmarks", nil)
	views := decode[[]PaperView](t, w)
	require.Len(t, views, 1)
	assert.Equal(t, "2", views[0].ID)
	assert.True(t, views[0].Bookmarked)

	w = do(t, h, "POST", "/api/bookmarks/2", nil)
	assert.Equal(t, false, decode[map[string]any](t, w)["bookmarked"])

	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/api/bookmarks/missing", nil).Code)
}

func TestDeleteRequiresAdmin(t *testing.T) {
	a, h := newTestServer(t)

	login(t, h, "student@example.com")
	assert.Equal(t, http.StatusForbidden, do(t, h, "DELETE", "/api/papers/1", nil).Code)

	_, err := a.State.ToggleBookmark("1")
	require.NoError(t, err)

	login(t, h, "lalitrajputrana0@gmail.com")
	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/api/papers/1", nil).Code)
	assert.False(t, a.State.IsBookmarked("1"))
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/papers/1", nil).Code)
}

func TestTutorWithoutProvider(t *testing.T) {
	_, h := newTestServer(t)
	login(t, h, "student@example.com")

	w := do(t, h, "POST", "/api/tutor/question", tutorRequest{Subject: "Maths"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Please configure your API Key to generate questions.", decode[map[string]string](t, w)["text"])

	w = do(t, h, "POST", "/api/tutor/tip", tutorRequest{Subject: "Maths"})
	assert.Equal(t, "Stay consistent and practice daily!", decode[map[string]string](t, w)["text"])

	w = do(t, h, "POST", "/api/tutor/chat", tutorRequest{Subject: "Maths", Message: "What is a prime?"})
	require.Equal(t, http.StatusOK, w.Code)
	var chat struct {
		Reply     models.ChatMessage   `json:"reply"`
		Delivered bool                 `json:"delivered"`
		Messages  []models.ChatMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chat))
	assert.True(t, chat.Delivered)
	assert.Equal(t, "I need an API Key to answer that.", chat.Reply.Text)
	assert.Len(t, chat.Messages, 3)

	// Switching subject starts a fresh chat.
	w = do(t, h, "GET", "/api/tutor/chat?subject=Hindi", nil)
	msgs := decode[[]models.ChatMessage](t, w)
	require.Len(t, msgs, 1)
	assert.True(t, strings.Contains(msgs[0].Text, "Hindi Tutor"))

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/tutor/chat", tutorRequest{Subject: "Hindi"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/tutor/tip", tutorRequest{Subject: "Latin"}).Code)

	w = do(t, h, "POST", "/api/tutor/chat", tutorRequest{Subject: "Maths", Message: strings.Repeat("why ", 20000)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestStatusAndHealthcheck(t *testing.T) {
	a, h := newTestServer(t)
	require.NoError(t, a.Flush(context.Background()))

	w := do(t, h, "GET", "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[map[string]any](t, w)
	assert.Equal(t, "seed", status["source"])
	assert.Equal(t, true, status["persistent"])

	w = do(t, h, "GET", "/healthcheck", nil)
	assert.Equal(t, "OK", w.Body.String())
}
