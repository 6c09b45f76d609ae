// Package codec turns uploaded attachments into self-describing data URIs
// that can be stored as a plain string on a paper, and back.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxAttachmentSize is the largest attachment accepted for embedding.
const MaxAttachmentSize = 15 * 1024 * 1024

// Placeholder is the pdfUrl of papers that have no attachment of their own.
const Placeholder = "#"

const (
	dataPrefix   = "data:"
	base64Suffix = ";base64"
)

var (
	// ErrTooLarge is returned when an attachment exceeds MaxAttachmentSize.
	ErrTooLarge = errors.New("attachment larger than 15 MiB")
	// ErrMalformed is returned when an embedded attachment cannot be decoded.
	ErrMalformed = errors.New("malformed embedded attachment")
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Attachment is a decoded binary payload.
type Attachment struct {
	Data     []byte
	MIMEType string
}

// Encode reads an attachment of declaredSize bytes from r and returns it as
// a base64 data URI. The size gate runs before anything is read; the reader
// is still bounded in case declaredSize understates the real length.
// An empty mimeType is detected from the content.
func Encode(r io.Reader, declaredSize int64, mimeType string) (string, error) {
	if declaredSize > MaxAttachmentSize {
		return "", ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxAttachmentSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read attachment: %w", err)
	}

	return EncodeBytes(data, mimeType)
}

// EncodeBytes is Encode for an attachment already held in memory.
func EncodeBytes(data []byte, mimeType string) (string, error) {
	if len(data) > MaxAttachmentSize {
		return "", ErrTooLarge
	}

	mimeType = normalizeMIME(mimeType)
	if mimeType == "" {
		mimeType = normalizeMIME(mimetype.Detect(data).String())
	}

	var b strings.Builder
	b.Grow(len(dataPrefix) + len(mimeType) + len(base64Suffix) + 1 + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString(dataPrefix)
	b.WriteString(mimeType)
	b.WriteString(base64Suffix)
	b.WriteByte(',')
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String(), nil
}

// Decode parses a base64 data URI produced by Encode.
func Decode(s string) (Attachment, error) {
	if !strings.HasPrefix(s, dataPrefix) {
		return Attachment{}, fmt.Errorf("%w: missing %q prefix", ErrMalformed, dataPrefix)
	}

	header, payload, ok := strings.Cut(s[len(dataPrefix):], ",")
	if !ok {
		return Attachment{}, fmt.Errorf("%w: missing ',' separator", ErrMalformed)
	}

	mimeType, ok := strings.CutSuffix(header, base64Suffix)
	if !ok {
		return Attachment{}, fmt.Errorf("%w: payload is not base64", ErrMalformed)
	}
	if mimeType == "" {
		// RFC 2397 default media type.
		mimeType = "text/plain;charset=US-ASCII"
	}

	data, err := base64.StdEncoding.Strict().DecodeString(payload)
	if err != nil {
		return Attachment{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return Attachment{Data: data, MIMEType: mimeType}, nil
}

// Check validates an embedded attachment without keeping the decoded
// payload. The size gate runs on the encoded length before decoding.
// Values that are not data URIs are links and pass unchecked.
func Check(url string) error {
	if !IsEmbedded(url) {
		return nil
	}
	if _, payload, ok := strings.Cut(url, ","); ok && base64.StdEncoding.DecodedLen(len(payload)) > MaxAttachmentSize {
		return ErrTooLarge
	}
	_, err := Decode(url)
	return err
}

// IsEmbedded reports whether url carries its payload inline.
func IsEmbedded(url string) bool {
	return strings.HasPrefix(url, dataPrefix)
}

// Resolve maps a paper's pdfUrl to something that can be opened: the
// placeholder and blank values resolve to DemoPDF.
func Resolve(pdfURL string) string {
	if trimmed := strings.TrimSpace(pdfURL); trimmed == "" || trimmed == Placeholder {
		return DemoPDF
	}
	return pdfURL
}

// DownloadName is the file name offered when a paper is downloaded.
func DownloadName(title string) string {
	return whitespaceRun.ReplaceAllString(title, "_") + ".pdf"
}

func normalizeMIME(m string) string {
	if strings.ContainsAny(m, ",\r\n") {
		return ""
	}
	return strings.ReplaceAll(strings.TrimSpace(m), " ", "")
}
