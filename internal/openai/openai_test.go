package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/studyshelf/internal/providers"
)

func TestGenerateWithoutKey(t *testing.T) {
	_, err := New("").Generate(context.Background(), providers.Request{Prompt: "x"})
	if !errors.Is(err, providers.ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"Newton's first law."}}]}`))
	}))
	defer srv.Close()

	o := New("sk-test")
	o.url = srv.URL

	text, err := o.Generate(context.Background(), providers.Request{Prompt: "inertia?"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Newton's first law." {
		t.Errorf("Expected Newton's first law., got %q", text)
	}
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	o := New("sk-test")
	o.url = srv.URL
	if _, err := o.Generate(context.Background(), providers.Request{Prompt: "x"}); err == nil {
		t.Error("Expected an error with no choices")
	}
}
