package catalog

import (
	"strings"

	"github.com/lehigh-university-libraries/studyshelf/internal/models"
)

// View is the page the user is looking at.
type View string

const (
	ViewHome      View = "home"
	ViewSubject   View = "subject"
	ViewBookmarks View = "bookmarks"
)

// ParseView maps a query value to a View; unknown values browse everything.
func ParseView(s string) View {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewSubject:
		return ViewSubject
	case ViewBookmarks:
		return ViewBookmarks
	}
	return ViewHome
}

// Query selects the visible papers.
type Query struct {
	View      View
	Subject   models.SubjectID
	Search    string
	Bookmarks []string
}

// Filter returns the papers visible for q, in their original order.
// It never modifies papers and allocates a fresh slice on every call.
func Filter(papers []models.Paper, q Query) []models.Paper {
	needle := strings.ToLower(q.Search)

	var bookmarked map[string]struct{}
	if q.View == ViewBookmarks {
		bookmarked = make(map[string]struct{}, len(q.Bookmarks))
		for _, id := range q.Bookmarks {
			bookmarked[id] = struct{}{}
		}
	}

	out := make([]models.Paper, 0, len(papers))
	for _, p := range papers {
		switch {
		case q.View == ViewBookmarks:
			if _, ok := bookmarked[p.ID]; !ok {
				continue
			}
		case q.View == ViewSubject:
			if p.SubjectID != q.Subject {
				continue
			}
		}
		if matches(p, needle) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p models.Paper, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(string(p.SubjectID)), needle)
}
