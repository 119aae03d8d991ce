package observers

import (
	"bytes"
	"context"
	"strings"
	"testing"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-anxiety-coach/server/internal/core"
	logx "github.com/ai-anxiety-coach/server/pkg/logger"
)

func TestPromptCallbacksLogRender(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.LoggerOpts{Environment: core.Development, Output: &buf})
	t.Cleanup(func() { logx.Init(logx.LoggerOpts{Environment: core.Testing}) })

	ctx := einocb.InitCallbacks(context.Background(), &einocb.RunInfo{}, NewPromptCallbacks())
	msgs, err := prompt.FromMessages(schema.GoTemplate, schema.SystemMessage("hello {{.Name}}")).
		Format(ctx, map[string]any{"Name": "coach"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Contains(t, buf.String(), "prompt rendered")
	assert.Contains(t, buf.String(), "hello coach")
}

func TestHeadTruncatesRunes(t *testing.T) {
	assert.Equal(t, "short", head("short"))
	assert.Equal(t, strings.Repeat("字", maxLoggedPrompt), head(strings.Repeat("字", maxLoggedPrompt+5)))
}
