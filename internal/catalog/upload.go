package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/studyshelf/internal/codec"
	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/maruel/ksid"
)

var (
	ErrForbidden      = errors.New("only admins can change the catalog")
	ErrTitleRequired  = errors.New("title is required")
	ErrUnknownSubject = errors.New("unknown subject")
	ErrUnknownType    = errors.New("unknown paper type")
)

// UploadRequest describes a new paper. When File is nil the paper links
// URL, or the demo PDF when URL is empty too.
type UploadRequest struct {
	Title    string
	Subject  models.SubjectID
	Type     models.PaperType
	File     io.Reader
	FileSize int64
	MIMEType string
	URL      string
}

// Uploader turns upload requests into papers and announcements.
type Uploader struct {
	state *State
	now   func() time.Time
}

func NewUploader(state *State) *Uploader {
	return &Uploader{state: state, now: time.Now}
}

// Upload validates req, embeds the attachment and prepends the new paper
// together with its announcement. Oversize attachments are rejected with
// codec.ErrTooLarge before they are read.
func (u *Uploader) Upload(ctx context.Context, user models.User, req UploadRequest) (models.Paper, error) {
	if !user.IsAdmin {
		return models.Paper{}, ErrForbidden
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Paper{}, ErrTitleRequired
	}
	subject, ok := models.ParseSubject(string(req.Subject))
	if !ok {
		return models.Paper{}, fmt.Errorf("%w: %q", ErrUnknownSubject, req.Subject)
	}
	paperType := models.PaperChapterWise
	if req.Type != "" {
		if paperType, ok = models.ParsePaperType(string(req.Type)); !ok {
			return models.Paper{}, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
		}
	}

	pdfURL := codec.DemoPDF
	switch {
	case req.File != nil:
		encoded, err := codec.Encode(req.File, req.FileSize, req.MIMEType)
		if err != nil {
			return models.Paper{}, err
		}
		pdfURL = encoded
	case strings.TrimSpace(req.URL) != "":
		pdfURL = strings.TrimSpace(req.URL)
		if err := codec.Check(pdfURL); err != nil {
			return models.Paper{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return models.Paper{}, err
	}

	now := u.now()
	paper := models.Paper{
		ID:         ksid.NewID().String(),
		Title:      title,
		SubjectID:  subject,
		Type:       paperType,
		PDFURL:     pdfURL,
		UploadDate: now.UTC().Format(time.DateOnly),
	}
	announcement := models.Announcement{
		ID:   ksid.NewID().String(),
		Text: fmt.Sprintf("New %s paper added: %s", subject, title),
		Date: "Just now",
	}

	if err := u.state.AddPaper(paper, &announcement); err != nil {
		return models.Paper{}, err
	}

	slog.Info("Paper added", "id", paper.ID, "title", title, "subject", subject, "embedded_bytes", len(pdfURL))
	return paper, nil
}

// Delete removes a paper on behalf of user.
func (u *Uploader) Delete(user models.User, id string) error {
	if !user.IsAdmin {
		return ErrForbidden
	}
	if err := u.state.DeletePaper(id); err != nil {
		return err
	}
	slog.Info("Paper deleted", "id", id)
	return nil
}
