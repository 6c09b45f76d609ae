package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/maruel/ksid"
)

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Conversation is a subject-scoped chat. Each message is tagged with the
// session generation and conversation epoch it was sent in; a reply that
// comes back after a logout or a subject switch is dropped.
type Conversation struct {
	subject    models.SubjectID
	generation uint64
	epoch      uint64
	messages   []models.ChatMessage
	mu         sync.Mutex
}

// Ticket identifies an outstanding request.
type Ticket struct {
	Subject    models.SubjectID
	Generation uint64
	epoch      uint64
	history    []models.ChatMessage
	text       string
}

// NewConversation starts a chat about subject for session generation.
func NewConversation(subject models.SubjectID, generation uint64) *Conversation {
	c := &Conversation{}
	c.Reset(subject, generation)
	return c
}

// Reset switches the chat to subject, discarding the transcript and any
// reply still in flight.
func (c *Conversation) Reset(subject models.SubjectID, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subject = subject
	c.generation = generation
	c.epoch++
	c.messages = []models.ChatMessage{{
		ID:        "welcome",
		Role:      models.RoleModel,
		Text:      fmt.Sprintf("Hi! I'm your %s Tutor. Ask me anything or request a practice question!", subject),
		Timestamp: time.Now().UnixMilli(),
	}}
}

func (c *Conversation) Subject() models.SubjectID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subject
}

// Generation is the session generation the chat belongs to.
func (c *Conversation) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.messages...)
}

// Send appends a user message and returns the ticket for its reply.
func (c *Conversation) Send(text string) (Ticket, error) {
	if strings.TrimSpace(text) == "" {
		return Ticket{}, ErrEmptyMessage
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t := Ticket{
		Subject:    c.subject,
		Generation: c.generation,
		epoch:      c.epoch,
		history:    append([]models.ChatMessage(nil), c.messages...),
		text:       text,
	}
	c.messages = append(c.messages, models.ChatMessage{
		ID:        ksid.NewID().String(),
		Role:      models.RoleUser,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	})
	return t, nil
}

// Deliver appends reply if t still belongs to this conversation and the
// session generation is unchanged. It reports whether the reply was kept.
func (c *Conversation) Deliver(t Ticket, generation uint64, reply string) (models.ChatMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.epoch != c.epoch || t.Generation != generation || c.generation != generation {
		slog.Info("Dropping stale tutor reply", "subject", t.Subject, "current_subject", c.subject)
		return models.ChatMessage{}, false
	}

	msg := models.ChatMessage{
		ID:        ksid.NewID().String(),
		Role:      models.RoleModel,
		Text:      reply,
		Timestamp: time.Now().UnixMilli(),
	}
	c.messages = append(c.messages, msg)
	return msg, true
}

// Ask sends text in conv, waits for the tutor and delivers the reply.
// generation reports the session generation at delivery time.
func (s *Service) Ask(ctx context.Context, conv *Conversation, text string, generation func() uint64) (models.ChatMessage, bool, error) {
	t, err := conv.Send(text)
	if err != nil {
		return models.ChatMessage{}, false, err
	}
	reply := s.Chat(ctx, t.history, t.text, string(t.Subject))
	msg, ok := conv.Deliver(t, generation(), reply)
	return msg, ok, nil
}
