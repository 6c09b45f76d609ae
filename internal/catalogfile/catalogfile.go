// Package catalogfile exports and imports papers as Parquet, JSONL or YAML
// files. The format is picked from the file extension.
package catalogfile

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for an unknown file extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// PaperRow is the flat record written to Parquet.
type PaperRow struct {
	ID         string `parquet:"id" yaml:"id"`
	Title      string `parquet:"title" yaml:"title"`
	SubjectID  string `parquet:"subject_id" yaml:"subject_id"`
	Type       string `parquet:"type" yaml:"type"`
	PDFURL     string `parquet:"pdf_url" yaml:"pdf_url"`
	UploadDate string `parquet:"upload_date" yaml:"upload_date"`
}

// Document is the YAML export of a whole snapshot.
type Document struct {
	Papers        []PaperRow            `yaml:"papers"`
	Announcements []models.Announcement `yaml:"announcements"`
	Bookmarks     []string              `yaml:"bookmarks"`
}

// Format names a supported file format.
type Format string

const (
	Parquet Format = "parquet"
	JSONL   Format = "jsonl"
	YAML    Format = "yaml"
)

// DetectFormat maps path's extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return Parquet, nil
	case ".jsonl", ".json":
		return JSONL, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %s (supported: .parquet, .jsonl, .yaml)", ErrUnsupportedFormat, ext)
	}
}

// Export writes snap to path. Parquet and JSONL carry only the papers.
func Export(path string, snap models.Snapshot) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	switch format {
	case Parquet:
		err = writeParquet(file, snap.Papers)
	case JSONL:
		err = writeJSONL(file, snap.Papers)
	case YAML:
		err = writeYAML(file, snap)
	}
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close export file: %w", closeErr)
	}
	if err != nil {
		return err
	}

	slog.Debug("Exported catalog", "path", path, "format", format, "papers", len(snap.Papers))
	return nil
}

// Import reads the papers stored in path.
func Import(path string) ([]models.Paper, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	var rows []PaperRow
	switch format {
	case Parquet:
		rows, err = readParquet(file)
	case JSONL:
		papers, err := readJSONL(file)
		if err != nil {
			return nil, err
		}
		return papers, validate(papers)
	case YAML:
		var doc Document
		if err := yaml.NewDecoder(file).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		rows = doc.Papers
	}
	if err != nil {
		return nil, err
	}

	papers := make([]models.Paper, 0, len(rows))
	for _, r := range rows {
		papers = append(papers, r.Paper())
	}
	return papers, validate(papers)
}

// validate canonicalizes subjects and paper types in place.
func validate(papers []models.Paper) error {
	for i := range papers {
		p := &papers[i]
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("paper %d has no id", i+1)
		}
		subject, ok := models.ParseSubject(string(p.SubjectID))
		if !ok {
			return fmt.Errorf("paper %s: unknown subject %q", p.ID, p.SubjectID)
		}
		p.SubjectID = subject
		if t, ok := models.ParsePaperType(string(p.Type)); ok {
			p.Type = t
		} else {
			p.Type = models.PaperChapterWise
		}
	}
	return nil
}

// Row flattens p.
func Row(p models.Paper) PaperRow {
	return PaperRow{
		ID:         p.ID,
		Title:      p.Title,
		SubjectID:  string(p.SubjectID),
		Type:       string(p.Type),
		PDFURL:     p.PDFURL,
		UploadDate: p.UploadDate,
	}
}

// Paper converts the row back.
func (r PaperRow) Paper() models.Paper {
	return models.Paper{
		ID:         r.ID,
		Title:      r.Title,
		SubjectID:  models.SubjectID(r.SubjectID),
		Type:       models.PaperType(r.Type),
		PDFURL:     r.PDFURL,
		UploadDate: r.UploadDate,
	}
}

func writeParquet(w io.Writer, papers []models.Paper) error {
	rows := make([]PaperRow, 0, len(papers))
	for _, p := range papers {
		rows = append(rows, Row(p))
	}

	writer := parquet.NewGenericWriter[PaperRow](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

func readParquet(file *os.File) ([]PaperRow, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[PaperRow](pf)
	defer reader.Close()

	var records []PaperRow
	batch := make([]PaperRow, 128)
	for {
		n, err := reader.Read(batch)
		records = append(records, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return records, nil
}

func writeJSONL(w io.Writer, papers []models.Paper) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, p := range papers {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("failed to encode paper %s: %w", p.ID, err)
		}
	}
	return bw.Flush()
}

func readJSONL(r io.Reader) ([]models.Paper, error) {
	scanner := bufio.NewScanner(r)

	// Embedded attachments make for long lines.
	const maxCapacity = 32 * 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	var papers []models.Paper
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p models.Paper
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		papers = append(papers, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return papers, nil
}

func writeYAML(w io.Writer, snap models.Snapshot) error {
	doc := Document{
		Papers:        make([]PaperRow, 0, len(snap.Papers)),
		Announcements: snap.Announcements,
		Bookmarks:     snap.Bookmarks,
	}
	for _, p := range snap.Papers {
		doc.Papers = append(doc.Papers, Row(p))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}
