package models

import "strings"

// SubjectID identifies one of the fixed Class 9 subjects.
type SubjectID string

const (
	SubjectMaths   SubjectID = "Maths"
	SubjectScience SubjectID = "Science"
	SubjectSST     SubjectID = "SST"
	SubjectEnglish SubjectID = "English"
	SubjectHindi   SubjectID = "Hindi"
	SubjectAI      SubjectID = "AI"
)

// Subjects lists every subject in display order.
var Subjects = []SubjectID{
	SubjectMaths,
	SubjectScience,
	SubjectSST,
	SubjectEnglish,
	SubjectHindi,
	SubjectAI,
}

// ParseSubject matches s against the known subjects, ignoring case.
func ParseSubject(s string) (SubjectID, bool) {
	for _, subject := range Subjects {
		if strings.EqualFold(string(subject), s) {
			return subject, true
		}
	}
	return "", false
}

// PaperType is the granularity of a paper.
type PaperType string

const (
	PaperChapterWise PaperType = "Chapter-wise"
	PaperFull        PaperType = "Full Paper"
)

// ParsePaperType accepts the display names as well as "chapter" and "full".
func ParsePaperType(s string) (PaperType, bool) {
	switch {
	case strings.EqualFold(s, string(PaperChapterWise)), strings.EqualFold(s, "chapter"):
		return PaperChapterWise, true
	case strings.EqualFold(s, string(PaperFull)), strings.EqualFold(s, "full"):
		return PaperFull, true
	}
	return "", false
}

// Paper is a study paper. Papers are replaced wholesale, never edited.
type Paper struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SubjectID  SubjectID `json:"subjectId"`
	Type       PaperType `json:"type"`
	PDFURL     string    `json:"pdfUrl"` // "#", an external URL or a data: URI
	UploadDate string    `json:"uploadDate"`
}

// Announcement is a short notice shown on the home view.
type Announcement struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Date string `json:"date"`
}

// Snapshot is the entire durable state, persisted under a single key.
type Snapshot struct {
	Papers        []Paper        `json:"papers"`
	Announcements []Announcement `json:"announcements"`
	Bookmarks     []string       `json:"bookmarks"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Papers:        append([]Paper(nil), s.Papers...),
		Announcements: append([]Announcement(nil), s.Announcements...),
		Bookmarks:     append([]string(nil), s.Bookmarks...),
	}
}

// User is the local session identity.
type User struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Name    string `json:"name,omitempty"`
	Guest   bool   `json:"guest,omitempty"`
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one turn of a tutor conversation.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}
