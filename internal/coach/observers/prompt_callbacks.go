// Package observers logs eino component lifecycle events through logx.
package observers

import (
	"context"
	"sync"
	"unicode/utf8"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/ai-anxiety-coach/server/pkg/logger"
)

const maxLoggedPrompt = 120

var registerOnce sync.Once

func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			ev := logx.Debug().Str("component", "prompt").Str("type", info.Type)
			if output != nil && len(output.Result) > 0 && output.Result[0] != nil {
				content := output.Result[0].Content
				ev = ev.Int("runes", utf8.RuneCountInString(content)).Str("head", head(content))
			}
			ev.Msg("prompt rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Str("component", "prompt").Str("type", info.Type).Err(err).Msg("prompt render failed")
			return ctx
		},
	}
}

// NewPromptCallbacks builds a callbacks.Handler for prompt render events.
func NewPromptCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Prompt(newPromptHandler()).
		Handler()
}

// Register installs the prompt callbacks as global eino handlers once per process.
func Register() {
	registerOnce.Do(func() {
		einocb.AppendGlobalHandlers(NewPromptCallbacks())
	})
}

func head(s string) string {
	if utf8.RuneCountInString(s) <= maxLoggedPrompt {
		return s
	}
	return string([]rune(s)[:maxLoggedPrompt])
}
