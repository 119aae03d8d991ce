package conversations

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"

	"github.com/ai-anxiety-coach/server/internal/coach/model"
	errx "github.com/ai-anxiety-coach/server/internal/core/error"
)

const maxMessageRunes = 4000

type MessagesManager struct {
	sessionRepo model.SessionRepository
}

func NewMessagesManager(sessionRepo model.SessionRepository) *MessagesManager {
	return &MessagesManager{sessionRepo: sessionRepo}
}

// ProcessUserMessage validates and stores one user turn.
func (cm *MessagesManager) ProcessUserMessage(ctx context.Context, sessionID string, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errx.Validation("empty message")
	}
	if utf8.RuneCountInString(text) > maxMessageRunes {
		return errx.Validation("message too long")
	}
	return cm.sessionRepo.AddMessage(ctx, sessionID, schema.UserMessage(text))
}

// BuildChatContext prepends systemPrompt to the full transcript.
func (cm *MessagesManager) BuildChatContext(ctx context.Context, sessionID string, systemPrompt string) ([]*schema.Message, error) {
	history, err := cm.sessionRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages := make([]*schema.Message, 0, len(history.Messages)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	return append(messages, history.Messages...), nil
}

// Transcript returns the full stored transcript.
func (cm *MessagesManager) Transcript(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	history, err := cm.sessionRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return history.Messages, nil
}

func (cm *MessagesManager) SaveReply(ctx context.Context, sessionID string, content string) error {
	return cm.sessionRepo.AddMessage(ctx, sessionID, schema.AssistantMessage(content, nil))
}

// Count returns the number of stored transcript messages.
func (cm *MessagesManager) Count(ctx context.Context, sessionID string) (int, error) {
	return cm.sessionRepo.GetMessageCount(ctx, sessionID)
}

func (cm *MessagesManager) Clear(ctx context.Context, sessionID string) error {
	return cm.sessionRepo.ClearHistory(ctx, sessionID)
}
