package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/studyshelf/internal/providers"
)

func TestGenerateWithoutKey(t *testing.T) {
	g := New("")
	if g.Name() != "gemini" {
		t.Errorf("Expected name gemini, got %s", g.Name())
	}
	_, err := g.Generate(context.Background(), providers.Request{Prompt: "hello"})
	if !errors.Is(err, providers.ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}
