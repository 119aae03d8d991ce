package model

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
)

type SessionRepository interface {
	// AddMessage appends a message to the session transcript.
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// LoadHistory returns the transcript in insertion order.
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	// ClearHistory removes the transcript.
	ClearHistory(ctx context.Context, sessionID string) error

	// GetMessageCount returns the number of transcript messages.
	GetMessageCount(ctx context.Context, sessionID string) (int, error)

	// SaveState stores the session state, refreshing its expiry.
	SaveState(ctx context.Context, state *SessionState) error

	// LoadState returns the session state or an errx not-found error.
	LoadState(ctx context.Context, sessionID string) (*SessionState, error)

	// DeleteState removes the session state; the transcript is left to ClearHistory.
	DeleteState(ctx context.Context, sessionID string) error
}

// ConversationHistory represents a loaded transcript.
type ConversationHistory struct {
	SessionID string
	Messages  []*schema.Message
}

// UserText concatenates the content of all user messages, newline separated.
func UserText(messages []*schema.Message) string {
	var parts []string
	for _, m := range messages {
		if m != nil && m.Role == schema.User {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// LastAssistant returns the content of the most recent assistant message, or "".
func LastAssistant(messages []*schema.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m != nil && m.Role == schema.Assistant {
			return m.Content
		}
	}
	return ""
}

// TranscriptEntry is the display form of one transcript message.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
