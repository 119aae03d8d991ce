package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-anxiety-coach/server/internal/coach/llm"
	"github.com/ai-anxiety-coach/server/internal/coach/model"
)

type stubClient struct {
	enabled bool
	reply   llm.Reply

	calls    int
	messages []*schema.Message
	opts     llm.ChatOptions
}

func (s *stubClient) Enabled() bool { return s.enabled }

func (s *stubClient) Chat(_ context.Context, messages []*schema.Message, opts llm.ChatOptions) llm.Reply {
	s.calls++
	s.messages = messages
	s.opts = opts
	return s.reply
}

func chat() []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage("coach prompt"),
		schema.UserMessage("最近总觉得自己越来越依赖AI"),
		schema.AssistantMessage("能多说一点吗？", nil),
		schema.UserMessage("写东西都不用脑了"),
	}
}

func TestAnalyzeUnconfiguredUsesHeuristic(t *testing.T) {
	client := &stubClient{}
	got := Analyze(context.Background(), client, chat())

	assert.Equal(t, 0, client.calls)
	assert.Equal(t, model.DriverSkillErosion, got.Driver)
	assert.Equal(t, 6, got.IntensityGuess)
	assert.Len(t, got.UnhelpfulThoughts, 2)
	assert.Len(t, got.SuggestedActions, 2)
	assert.NotEmpty(t, got.Reframe)
	assert.Empty(t, got.LastError)
}

func TestAnalyzeNilClient(t *testing.T) {
	got := Analyze(context.Background(), nil, []*schema.Message{schema.UserMessage("我怕被裁员")})
	assert.Equal(t, model.DriverJobLoss, got.Driver)
}

func TestAnalyzeRequestShape(t *testing.T) {
	client := &stubClient{enabled: true, reply: llm.Reply{Text: `{"driver":"job_loss","intensity_guess_0_10":4}`}}
	New(client, WithTemperature(0.3)).Analyze(context.Background(), chat())

	require.Equal(t, 1, client.calls)
	assert.True(t, client.opts.ForceJSON)
	assert.InDelta(t, 0.3, client.opts.Temperature, 1e-6)

	require.Len(t, client.messages, 2)
	assert.Equal(t, schema.System, client.messages[0].Role)
	assert.Contains(t, client.messages[0].Content, "JSON schema")
	assert.Equal(t, schema.User, client.messages[1].Role)

	body := client.messages[1].Content
	require.True(t, strings.HasPrefix(body, "CHAT TRANSCRIPT:\n"))
	var entries []map[string]string
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(body, "CHAT TRANSCRIPT:\n")), &entries))
	assert.Equal(t, []map[string]string{
		{"role": "user", "content": "最近总觉得自己越来越依赖AI"},
		{"role": "assistant", "content": "能多说一点吗？"},
		{"role": "user", "content": "写东西都不用脑了"},
	}, entries)
}

func TestAnalyzeDefaultTemperature(t *testing.T) {
	client := &stubClient{enabled: true, reply: llm.Reply{Text: `{}`}}
	Analyze(context.Background(), client, chat())
	assert.InDelta(t, 0.2, client.opts.Temperature, 1e-6)
}

func TestAnalyzeNormalizesModelOutput(t *testing.T) {
	client := &stubClient{enabled: true, reply: llm.Reply{Text: "```json\n" +
		`{"driver":"value_threat","intensity_guess_0_10":"8","unhelpful_thoughts":"我没用了","reframe":"换个角度","suggested_actions":["写下一次被需要的经历"]}` +
		"\n```"}}

	got := Analyze(context.Background(), client, chat())
	assert.Equal(t, model.ChatSummary{
		Driver:            model.DriverValueThreat,
		IntensityGuess:    8,
		UnhelpfulThoughts: []string{"我没用了"},
		Reframe:           "换个角度",
		SuggestedActions:  []string{"写下一次被需要的经历"},
	}, got)
}

func TestAnalyzeCarriesClientError(t *testing.T) {
	client := &stubClient{enabled: true, reply: llm.Reply{
		Text: `{"driver":"nope"}`,
		Err:  errors.New("HTTP 429: rate limited"),
	}}
	got := Analyze(context.Background(), client, chat())
	assert.Equal(t, model.DriverSkillErosion, got.Driver)
	assert.Equal(t, "HTTP 429: rate limited", got.LastError)
}

func TestAnalyzeParseFailureDegrades(t *testing.T) {
	raw := strings.Repeat("无法", 500)
	client := &stubClient{enabled: true, reply: llm.Reply{Text: raw, Err: errors.New("duplicate reply"), Offline: true}}

	got := Analyze(context.Background(), client, chat())
	assert.Equal(t, model.DriverSkillErosion, got.Driver)
	assert.Equal(t, 6, got.IntensityGuess)
	assert.Equal(t, []string{parseFailureNote}, got.UnhelpfulThoughts)
	assert.Equal(t, []rune(raw)[:800], []rune(got.Reframe))
	assert.Empty(t, got.SuggestedActions)
	assert.Equal(t, "duplicate reply", got.LastError)
}
