// Package analyzer reduces a chat transcript to a structured model.ChatSummary.
package analyzer

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"

	"github.com/ai-anxiety-coach/server/internal/coach/classifier"
	"github.com/ai-anxiety-coach/server/internal/coach/llm"
	"github.com/ai-anxiety-coach/server/internal/coach/model"
	"github.com/ai-anxiety-coach/server/internal/coach/parsers"
	"github.com/ai-anxiety-coach/server/internal/coach/prompts"
	logx "github.com/ai-anxiety-coach/server/pkg/logger"
)

const (
	heuristicIntensity = 6
	maxRawReframe      = 800
	transcriptHeader   = "CHAT TRANSCRIPT:\n"
	parseFailureNote   = "模型输出未能解析为JSON，已使用降级策略"
	defaultTemperature = 0.2
)

// ChatClient is the part of *llm.Client the analyzer needs.
type ChatClient interface {
	Enabled() bool
	Chat(ctx context.Context, messages []*schema.Message, opts llm.ChatOptions) llm.Reply
}

type Analyzer struct {
	client      ChatClient
	temperature float32
}

type Option func(*Analyzer)

// WithTemperature overrides the sampling temperature of the analysis call.
func WithTemperature(t float32) Option {
	return func(a *Analyzer) {
		a.temperature = t
	}
}

func New(client ChatClient, opts ...Option) *Analyzer {
	a := &Analyzer{client: client, temperature: defaultTemperature}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze summarizes transcript. It never fails: an unconfigured client yields
// a heuristic summary and unparseable output yields a degraded one.
func (a *Analyzer) Analyze(ctx context.Context, transcript []*schema.Message) model.ChatSummary {
	userText := model.UserText(transcript)
	if a.client == nil || !a.client.Enabled() {
		return heuristicSummary(userText)
	}

	system, err := prompts.RenderAnalyzerSystem(ctx)
	if err != nil {
		logx.Error().Str("component", "analyzer").Err(err).Msg("render analyzer prompt")
		return heuristicSummary(userText)
	}

	payload, err := json.Marshal(wireTranscript(transcript))
	if err != nil {
		logx.Error().Str("component", "analyzer").Err(err).Msg("encode transcript")
		return heuristicSummary(userText)
	}

	reply := a.client.Chat(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(transcriptHeader + string(payload)),
	}, llm.ChatOptions{Temperature: a.temperature, ForceJSON: true})

	obj, err := parsers.ExtractJSONObject(reply.Text)
	if err != nil {
		logx.Warn().
			Str("component", "analyzer").
			Err(err).
			Bool("offline", reply.Offline).
			Msg("analysis output not parseable, using degraded summary")
		return degradedSummary(userText, reply.Text, reply.ErrText())
	}
	return parsers.NormalizeSummary(obj, userText, reply.ErrText())
}

// Analyze is a convenience wrapper using the default temperature.
func Analyze(ctx context.Context, client ChatClient, transcript []*schema.Message) model.ChatSummary {
	return New(client).Analyze(ctx, transcript)
}

type transcriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// wireTranscript keeps user and assistant turns only.
func wireTranscript(messages []*schema.Message) []transcriptEntry {
	out := make([]transcriptEntry, 0, len(messages))
	for _, m := range messages {
		if m == nil || (m.Role != schema.User && m.Role != schema.Assistant) {
			continue
		}
		out = append(out, transcriptEntry{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func heuristicSummary(userText string) model.ChatSummary {
	return model.ChatSummary{
		Driver:         classifier.Classify(userText),
		IntensityGuess: heuristicIntensity,
		UnhelpfulThoughts: []string{
			"灾难化想象：把不确定当成必然",
			"全或无：要么被取代要么毫无价值",
		},
		Reframe: "你现在面对的是不确定性带来的压力，而不是一个已确定的结局。" +
			"与其预测未来，不如把注意力放到你能控制的协作方式与价值环节上。我们用一次小行动来恢复掌控感。",
		SuggestedActions: []string{
			"写下你工作中3个关键环节，并标注AI可替代程度（10分钟）",
			"做一次三段协作：我先写要点→AI扩写→我复核删改（10分钟）",
		},
	}
}

func degradedSummary(userText, raw, lastErr string) model.ChatSummary {
	reframe := raw
	if utf8.RuneCountInString(raw) > maxRawReframe {
		reframe = string([]rune(raw)[:maxRawReframe])
	}
	return model.ChatSummary{
		Driver:            classifier.Classify(userText),
		IntensityGuess:    heuristicIntensity,
		UnhelpfulThoughts: []string{parseFailureNote},
		Reframe:           reframe,
		SuggestedActions:  []string{},
		LastError:         lastErr,
	}
}
