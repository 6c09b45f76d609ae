// Package tutor asks an LLM provider for practice questions, study tips and
// chat replies. Every call degrades to a static fallback string; callers
// never see an error.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/lehigh-university-libraries/studyshelf/internal/providers"
	"golang.org/x/time/rate"
)

// HistoryLimit is how many prior turns are sent with a chat message.
const HistoryLimit = 10

const (
	DefaultTimeout       = 30 * time.Second
	DefaultRatePerMinute = 20
	DefaultBurst         = 5
)

type fallbacks struct {
	notConfigured string
	empty         string
	failed        string
}

var (
	questionFallbacks = fallbacks{
		notConfigured: "Please configure your API Key to generate questions.",
		empty:         "Could not generate a question at this time.",
		failed:        "Error connecting to AI Tutor. Please try again later.",
	}
	tipFallbacks = fallbacks{
		notConfigured: "Stay consistent and practice daily!",
		empty:         "Review your notes daily.",
		failed:        "Focus on understanding concepts rather than rote memorization.",
	}
	chatFallbacks = fallbacks{
		notConfigured: "I need an API Key to answer that.",
		empty:         "I'm having trouble thinking of an answer right now.",
		failed:        "Sorry, I lost connection. Please try asking again.",
	}
)

// Config tunes the Service.
type Config struct {
	Model         string
	Timeout       time.Duration
	RatePerMinute int
	Burst         int
}

// Service is the AI tutor.
type Service struct {
	provider providers.Provider
	cfg      Config
	limiter  *rate.Limiter
}

// New returns a tutor backed by provider. A nil provider answers every
// request with the "not configured" fallback.
func New(provider providers.Provider, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = DefaultRatePerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	return &Service{
		provider: provider,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.Burst),
	}
}

// Configured reports whether a provider is wired in.
func (s *Service) Configured() bool {
	return s.provider != nil
}

// PracticeQuestion returns one practice question for subject.
func (s *Service) PracticeQuestion(ctx context.Context, subject string) string {
	return s.generate(ctx, "question", providers.Request{
		Temperature: 0.7,
		Prompt: fmt.Sprintf(`Generate a single, challenging practice question for Class 9 %s. 
      Format it clearly. Do not provide the answer immediately, just the question.`, subject),
	}, questionFallbacks)
}

// StudyTip returns a tip of at most two sentences.
func (s *Service) StudyTip(ctx context.Context, subject string) string {
	return s.generate(ctx, "tip", providers.Request{
		Prompt: fmt.Sprintf("Give me one short, powerful study tip for a Class 9 student studying %s. Max 2 sentences.", subject),
	}, tipFallbacks)
}

// Chat answers message given the prior turns in history.
func (s *Service) Chat(ctx context.Context, history []models.ChatMessage, message, subject string) string {
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}
	turns := make([]providers.Message, 0, len(history))
	for _, m := range history {
		turns = append(turns, providers.Message{Role: string(m.Role), Text: m.Text})
	}

	return s.generate(ctx, "chat", providers.Request{
		SystemInstruction: systemInstruction(subject),
		History:           turns,
		Prompt:            fmt.Sprintf("[Context: Class 9 %s] %s", subject, message),
	}, chatFallbacks)
}

func (s *Service) generate(ctx context.Context, kind string, req providers.Request, fb fallbacks) string {
	if s.provider == nil {
		return fb.notConfigured
	}
	if !s.limiter.Allow() {
		slog.Warn("Tutor request rate limited", "kind", kind)
		return fb.failed
	}

	req.Model = s.cfg.Model
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := s.provider.Generate(ctx, req)
	switch {
	case errors.Is(err, providers.ErrNotConfigured):
		return fb.notConfigured
	case err != nil:
		slog.Error("Tutor request failed", "kind", kind, "provider", s.provider.Name(), "err", err)
		return fb.failed
	case strings.TrimSpace(text) == "":
		return fb.empty
	}

	slog.Debug("Tutor replied", "kind", kind, "provider", s.provider.Name(), "took", time.Since(start), "length", len(text))
	return text
}

func systemInstruction(subject string) string {
	return fmt.Sprintf(`You are a friendly, encouraging, and highly intelligent AI Tutor for a Class 9 student. 
        Your subject of expertise right now is %s.
        - Keep answers concise but clear (under 150 words usually).
        - Use simple language suitable for a 14-15 year old.
        - If asked a question, guide them to the answer rather than just giving it straight away if it's a homework problem.
        - Use formatting (bullet points, bold text) to make it readable.`, subject)
}
