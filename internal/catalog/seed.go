package catalog

import "github.com/lehigh-university-libraries/studyshelf/internal/models"

// DefaultPapers seeds a catalog that has never been saved.
func DefaultPapers() []models.Paper {
	return []models.Paper{
		{ID: "1", Title: "Polynomials Practice Set A", SubjectID: models.SubjectMaths, Type: models.PaperChapterWise, PDFURL: "#", UploadDate: "2023-10-01"},
		{ID: "2", Title: "Force and Laws of Motion", SubjectID: models.SubjectScience, Type: models.PaperChapterWise, PDFURL: "#", UploadDate: "2023-10-05"},
		{ID: "3", Title: "French Revolution Full Summary", SubjectID: models.SubjectSST, Type: models.PaperFull, PDFURL: "#", UploadDate: "2023-10-10"},
		{ID: "4", Title: "Artificial Intelligence Basics", SubjectID: models.SubjectAI, Type: models.PaperFull, PDFURL: "#", UploadDate: "2023-10-12"},
	}
}

// DefaultAnnouncements seeds the announcement feed.
func DefaultAnnouncements() []models.Announcement {
	return []models.Announcement{
		{ID: "a1", Text: "New Science sample papers added!", Date: "2 hrs ago"},
		{ID: "a2", Text: "Maths mid-term solutions available.", Date: "1 day ago"},
	}
}

// DefaultSnapshot is the state of a fresh install.
func DefaultSnapshot() models.Snapshot {
	return models.Snapshot{
		Papers:        DefaultPapers(),
		Announcements: DefaultAnnouncements(),
		Bookmarks:     []string{},
	}
}
