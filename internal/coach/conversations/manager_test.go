package conversations

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-anxiety-coach/server/internal/coach/repo"
	errx "github.com/ai-anxiety-coach/server/internal/core/error"
)

func TestChatContextOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMessagesManager(repo.NewMemorySessionRepository(time.Hour))

	require.NoError(t, m.ProcessUserMessage(ctx, "s", "  我担心被替代  "))
	require.NoError(t, m.SaveReply(ctx, "s", "能具体说说吗？"))
	require.NoError(t, m.ProcessUserMessage(ctx, "s", "怕失业"))

	msgs, err := m.BuildChatContext(ctx, "s", "SYSTEM")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "SYSTEM", msgs[0].Content)
	assert.Equal(t, "我担心被替代", msgs[1].Content)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "怕失业", msgs[3].Content)

	transcript, err := m.Transcript(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, transcript, 3)
}

func TestChatContextCarriesWholeTranscript(t *testing.T) {
	ctx := context.Background()
	m := NewMessagesManager(repo.NewMemorySessionRepository(time.Hour))
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, m.ProcessUserMessage(ctx, "s", text))
	}

	msgs, err := m.BuildChatContext(ctx, "s", "SYSTEM")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "one", msgs[1].Content)
	assert.Equal(t, "three", msgs[3].Content)

	n, err := m.Count(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, m.Clear(ctx, "s"))
	n, err = m.Count(ctx, "s")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessUserMessageValidates(t *testing.T) {
	ctx := context.Background()
	m := NewMessagesManager(repo.NewMemorySessionRepository(time.Hour))

	assert.ErrorIs(t, m.ProcessUserMessage(ctx, "s", " \n "), errx.ErrValidation)
	assert.ErrorIs(t, m.ProcessUserMessage(ctx, "s", strings.Repeat("字", maxMessageRunes+1)), errx.ErrValidation)

	require.NoError(t, m.Clear(ctx, "s"))
	transcript, err := m.Transcript(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, transcript)
}
