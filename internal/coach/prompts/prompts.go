// Package prompts renders the system prompts sent to the completion endpoint.
package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/ai-anxiety-coach/server/internal/coach/model"
)

//go:embed template/chat_system.txt
var chatSystemPrompt string

//go:embed template/analyzer_system.txt
var analyzerSystemPrompt string

// RenderChatSystem renders the coaching system prompt for a neuroticism band.
// An unknown or empty band gets the mid style. role is optional.
func RenderChatSystem(ctx context.Context, band model.Band, role string) (string, error) {
	return render(ctx, "chat", chatSystemPrompt, map[string]any{
		"Band": string(band),
		"Role": strings.TrimSpace(role),
	})
}

// RenderAnalyzerSystem renders the analyzer instructions with the JSON schema hint.
func RenderAnalyzerSystem(ctx context.Context) (string, error) {
	quoted := make([]string, 0, len(model.Drivers))
	plain := make([]string, 0, len(model.Drivers))
	for _, d := range model.Drivers {
		quoted = append(quoted, fmt.Sprintf("%q", string(d)))
		plain = append(plain, string(d))
	}
	return render(ctx, "analyzer", analyzerSystemPrompt, map[string]any{
		"DriverList": strings.Join(quoted, ","),
		"DriverEnum": strings.Join(plain, "|"),
	})
}

// render goes through the eino prompt component so prompt callbacks fire.
func render(ctx context.Context, name, tpl string, vars map[string]any) (string, error) {
	msgs, err := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(tpl),
	).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}
