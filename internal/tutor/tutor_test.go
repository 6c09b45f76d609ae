package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/lehigh-university-libraries/studyshelf/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply string
	err   error
	block chan struct{}

	mu   sync.Mutex
	reqs []providers.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, req providers.Request) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeProvider) last() providers.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func TestFallbacks(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		provider providers.Provider
		want     [3]string // question, tip, chat
	}{
		{
			name:     "no provider",
			provider: nil,
			want:     [3]string{questionFallbacks.notConfigured, tipFallbacks.notConfigured, chatFallbacks.notConfigured},
		},
		{
			name:     "provider without key",
			provider: &fakeProvider{err: fmt.Errorf("gemini: %w", providers.ErrNotConfigured)},
			want:     [3]string{questionFallbacks.notConfigured, tipFallbacks.notConfigured, chatFallbacks.notConfigured},
		},
		{
			name:     "empty reply",
			provider: &fakeProvider{reply: "  \n"},
			want:     [3]string{questionFallbacks.empty, tipFallbacks.empty, chatFallbacks.empty},
		},
		{
			name:     "transport error",
			provider: &fakeProvider{err: errors.New("connection reset")},
			want:     [3]string{questionFallbacks.failed, tipFallbacks.failed, chatFallbacks.failed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.provider, Config{Burst: 10})
			assert.Equal(t, tt.want[0], s.PracticeQuestion(ctx, "Maths"))
			assert.Equal(t, tt.want[1], s.StudyTip(ctx, "Maths"))
			assert.Equal(t, tt.want[2], s.Chat(ctx, nil, "hi", "Maths"))
		})
	}
}

func TestPrompts(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{reply: "ok"}
	s := New(p, Config{Model: "gemini-2.5-flash", Burst: 10})

	require.Equal(t, "ok", s.PracticeQuestion(ctx, "Science"))
	req := p.last()
	assert.Contains(t, req.Prompt, "practice question for Class 9 Science")
	assert.Equal(t, 0.7, req.Temperature)
	assert.Equal(t, "gemini-2.5-flash", req.Model)

	s.StudyTip(ctx, "Hindi")
	assert.Contains(t, p.last().Prompt, "studying Hindi. Max 2 sentences.")

	s.Chat(ctx, nil, "What is a cell?", "Science")
	req = p.last()
	assert.Equal(t, "[Context: Class 9 Science] What is a cell?", req.Prompt)
	assert.Contains(t, req.SystemInstruction, "Your subject of expertise right now is Science.")
}

func TestChatTrimsHistory(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	s := New(p, Config{})

	var history []models.ChatMessage
	for i := 0; i < 25; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleModel
		}
		history = append(history, models.ChatMessage{ID: fmt.Sprint(i), Role: role, Text: fmt.Sprintf("turn %d", i)})
	}

	s.Chat(context.Background(), history, "next", "Maths")
	req := p.last()
	require.Len(t, req.History, HistoryLimit)
	assert.Equal(t, "turn 15", req.History[0].Text)
	assert.Equal(t, "turn 24", req.History[HistoryLimit-1].Text)
	assert.Equal(t, providers.RoleUser, req.History[HistoryLimit-1].Role)
}

func TestTimeoutFallsBack(t *testing.T) {
	p := &fakeProvider{reply: "too late", block: make(chan struct{})}
	defer close(p.block)
	s := New(p, Config{Timeout: 20 * time.Millisecond})

	assert.Equal(t, tipFallbacks.failed, s.StudyTip(context.Background(), "AI"))
}

func TestRateLimit(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	s := New(p, Config{RatePerMinute: 1, Burst: 2})
	ctx := context.Background()

	assert.Equal(t, "ok", s.StudyTip(ctx, "SST"))
	assert.Equal(t, "ok", s.StudyTip(ctx, "SST"))
	assert.Equal(t, tipFallbacks.failed, s.StudyTip(ctx, "SST"))
}

func TestConversationWelcome(t *testing.T) {
	c := NewConversation(models.SubjectEnglish, 1)
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.RoleModel, msgs[0].Role)
	assert.Equal(t, "Hi! I'm your English Tutor. Ask me anything or request a practice question!", msgs[0].Text)

	_, err := c.Send("   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestAskAppendsReply(t *testing.T) {
	p := &fakeProvider{reply: "Photosynthesis makes food."}
	s := New(p, Config{})
	c := NewConversation(models.SubjectScience, 3)

	msg, ok, err := s.Ask(context.Background(), c, "What do leaves do?", func() uint64 { return 3 })
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Photosynthesis makes food.", msg.Text)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, models.RoleUser, msgs[1].Role)
	assert.Equal(t, models.RoleModel, msgs[2].Role)

	// History excludes the message being asked.
	require.Len(t, p.last().History, 1)
	assert.True(t, strings.HasPrefix(p.last().History[0].Text, "Hi! I'm your Science Tutor"))
}

func TestStaleRepliesAreDropped(t *testing.T) {
	t.Run("subject switch", func(t *testing.T) {
		c := NewConversation(models.SubjectMaths, 1)
		ticket, err := c.Send("What is pi?")
		require.NoError(t, err)

		c.Reset(models.SubjectScience, 1)
		_, ok := c.Deliver(ticket, 1, "3.14159")
		assert.False(t, ok)
		assert.Len(t, c.Messages(), 1)
	})

	t.Run("logout", func(t *testing.T) {
		c := NewConversation(models.SubjectMaths, 1)
		ticket, err := c.Send("What is pi?")
		require.NoError(t, err)

		_, ok := c.Deliver(ticket, 2, "3.14159")
		assert.False(t, ok)
		assert.Len(t, c.Messages(), 2)
	})

	t.Run("current", func(t *testing.T) {
		c := NewConversation(models.SubjectMaths, 1)
		ticket, err := c.Send("What is pi?")
		require.NoError(t, err)

		_, ok := c.Deliver(ticket, 1, "3.14159")
		assert.True(t, ok)
		assert.Len(t, c.Messages(), 3)
	})
}
