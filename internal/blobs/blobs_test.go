package blobs

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/studyshelf/internal/codec"
)

func TestOpenGetRevoke(t *testing.T) {
	r := New(time.Minute)
	defer r.Close()

	h, err := r.Open(codec.DemoPDF)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if h.URL != "/blob/"+h.ID {
		t.Errorf("Expected URL /blob/%s, got %s", h.ID, h.URL)
	}
	if h.MIMEType != "application/pdf" {
		t.Errorf("Expected application/pdf, got %s", h.MIMEType)
	}

	att, err := r.Get(h.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.HasPrefix(att.Data, []byte("%PDF-")) {
		t.Errorf("Expected PDF payload")
	}

	r.Revoke(h.ID)
	if _, err := r.Get(h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after revoke, got %v", err)
	}
}

func TestOpenMalformed(t *testing.T) {
	r := New(time.Minute)
	defer r.Close()

	_, err := r.Open("data:application/pdf;base64,@@@")
	if !errors.Is(err, ErrViewerUnavailable) {
		t.Fatalf("Expected ErrViewerUnavailable, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Expected no handles, got %d", r.Len())
	}
}

func TestExpiry(t *testing.T) {
	r := New(time.Minute)
	defer r.Close()

	now := time.Now()
	r.now = func() time.Time { return now }
	h := r.Register(codec.Attachment{Data: []byte("x"), MIMEType: "text/plain"})

	now = now.Add(2 * time.Minute)
	if _, err := r.Get(h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected expired handle to be gone, got %v", err)
	}

	r.sweep()
	if r.Len() != 0 {
		t.Errorf("Expected sweep to drop the expired handle, got %d", r.Len())
	}
}
