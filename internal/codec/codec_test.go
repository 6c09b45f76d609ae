package codec

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

type countingReader struct {
	r     *bytes.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	sizes := []int{0, 1, 2, 3, 1024, 2 * 1024 * 1024, MaxAttachmentSize}

	for _, size := range sizes {
		payload := make([]byte, size)
		rng.Read(payload)

		encoded, err := Encode(bytes.NewReader(payload), int64(size), "application/pdf")
		if err != nil {
			t.Fatalf("Encode(%d bytes) failed: %v", size, err)
		}

		att, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%d bytes) failed: %v", size, err)
		}
		if !bytes.Equal(att.Data, payload) {
			t.Errorf("Round trip of %d bytes changed the payload", size)
		}
		if att.MIMEType != "application/pdf" {
			t.Errorf("Expected MIME application/pdf, got %s", att.MIMEType)
		}
	}
}

func TestEncodeRejectsDeclaredSizeBeforeReading(t *testing.T) {
	r := &countingReader{r: bytes.NewReader([]byte("tiny"))}

	_, err := Encode(r, MaxAttachmentSize+1, "application/pdf")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
	if r.reads != 0 {
		t.Errorf("Expected no reads before rejecting, got %d", r.reads)
	}
}

func TestEncodeRejectsUnderstatedSize(t *testing.T) {
	payload := make([]byte, MaxAttachmentSize+10)

	_, err := Encode(bytes.NewReader(payload), 10, "application/pdf")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
}

func TestEncodeDetectsMIME(t *testing.T) {
	pdf := []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")

	encoded, err := EncodeBytes(pdf, "")
	if err != nil {
		t.Fatalf("EncodeBytes failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "data:application/pdf;base64,") {
		t.Errorf("Expected a PDF data URI, got prefix %q", encoded[:40])
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "no prefix", input: "application/pdf;base64,AAAA"},
		{name: "no comma", input: "data:application/pdf;base64AAAA"},
		{name: "not base64", input: "data:application/pdf,hello"},
		{name: "bad alphabet", input: "data:application/pdf;base64,AA*A"},
		{name: "bad padding", input: "data:application/pdf;base64,AAA"},
		{name: "placeholder", input: Placeholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att, err := Decode(tt.input)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Expected ErrMalformed, got %v", err)
			}
			if att.Data != nil {
				t.Errorf("Expected no partial data, got %d bytes", len(att.Data))
			}
		})
	}
}

func TestDemoPDFDecodes(t *testing.T) {
	att, err := Decode(DemoPDF)
	if err != nil {
		t.Fatalf("Decode(DemoPDF) failed: %v", err)
	}
	if !bytes.HasPrefix(att.Data, []byte("%PDF-")) {
		t.Errorf("Expected PDF header, got %q", att.Data[:8])
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "#", expected: DemoPDF},
		{input: "  ", expected: DemoPDF},
		{input: "", expected: DemoPDF},
		{input: "https://example.org/a.pdf", expected: "https://example.org/a.pdf"},
	}

	for _, tt := range tests {
		if got := Resolve(tt.input); got != tt.expected {
			t.Errorf("Resolve(%q) = %.40q, expected %.40q", tt.input, got, tt.expected)
		}
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		url  string
		err  error
	}{
		{"link", "https://example.com/a.pdf", nil},
		{"placeholder", "#", nil},
		{"demo", DemoPDF, nil},
		{"malformed", "data:application/pdf;base64,!!!", ErrMalformed},
		{"not base64", "data:text/plain,hello", ErrMalformed},
		{"oversize", "data:application/pdf;base64," + strings.Repeat("A", 21*1024*1024), ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Check(tt.url); !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestDownloadName(t *testing.T) {
	if got := DownloadName("Force and  Laws\tof Motion"); got != "Force_and_Laws_of_Motion.pdf" {
		t.Errorf("Expected Force_and_Laws_of_Motion.pdf, got %s", got)
	}
}
