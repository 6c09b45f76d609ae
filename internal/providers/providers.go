package providers

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a provider is missing credentials.
var ErrNotConfigured = errors.New("provider not configured")

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one prior turn of a conversation.
type Message struct {
	Role string // RoleUser or RoleModel
	Text string
}

// Request represents a single text-completion call to an LLM provider
type Request struct {
	Model string
	// Temperature of zero keeps the provider default.
	Temperature       float64
	SystemInstruction string
	History           []Message
	Prompt            string
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}
