// Package llm talks to an OpenAI-compatible chat completion endpoint.
//
// Chat never fails: transport, remote and decoding problems, a partial
// configuration, or a reply that repeats the previous assistant turn all
// degrade to a deterministic offline substitute, and the cause travels in
// Reply.Err for display.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ai-anxiety-coach/server/internal/coach/model"
	logx "github.com/ai-anxiety-coach/server/pkg/logger"
)

const (
	completionsPath = "/v1/chat/completions"
	defaultTimeout  = 30 * time.Second

	// jsonOnlyInstruction replaces response_format when the remote rejects it.
	jsonOnlyInstruction = "Return ONLY valid JSON, no markdown or code fences."
)

// Env var names, reported when the configuration is partial.
const (
	EnvBaseURL = "LLM_BASE_URL"
	EnvAPIKey  = "LLM_API_KEY"
	EnvModel   = "LLM_MODEL"
)

// ChatOptions tunes a single call.
type ChatOptions struct {
	Temperature float32
	// ForceJSON asks the remote for a JSON object via response_format.
	ForceJSON bool
	// MaxHistory caps the non-system messages sent to the remote, keeping the
	// most recent ones. Zero sends everything. The offline script always sees
	// the full transcript.
	MaxHistory int
}

// Reply is the outcome of Chat. Text is always usable.
type Reply struct {
	Text string
	// Err is nil on a clean remote reply and on a silent offline reply.
	Err error
	// Offline is true when Text came from the substitute generator.
	Offline bool
}

// ErrText returns Err as display text, or "".
func (r Reply) ErrText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client (timeout from LLM_TIMEOUT).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(cfg model.LLMConfig, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	c := &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		apiKey:     cfg.APIKey,
		model:      strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// normalizeBaseURL drops trailing slashes and a trailing /v1, since the
// completions path already carries the version.
func normalizeBaseURL(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	return strings.TrimSuffix(u, "/v1")
}

// Enabled reports whether base URL, API key and model are all configured.
func (c *Client) Enabled() bool {
	return len(c.missing()) == 0
}

// Mode describes the client for display, e.g. "real (gpt-4o-mini)" or "offline".
func (c *Client) Mode() string {
	if c.Enabled() {
		return fmt.Sprintf("real (%s)", c.model)
	}
	return "offline"
}

func (c *Client) missing() []string {
	var missing []string
	if c.baseURL == "" {
		missing = append(missing, EnvBaseURL)
	}
	if c.apiKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if c.model == "" {
		missing = append(missing, EnvModel)
	}
	return missing
}

// Chat returns one assistant reply for the transcript.
func (c *Client) Chat(ctx context.Context, messages []*schema.Message, opts ChatOptions) Reply {
	if missing := c.missing(); len(missing) > 0 {
		if len(missing) == 3 {
			return offline(messages, nil)
		}
		return offline(messages, &CallError{
			Kind:    KindConfig,
			Message: "missing: " + strings.Join(missing, ", "),
		})
	}

	text, callErr := c.complete(ctx, messages, opts, opts.ForceJSON)
	if callErr != nil && opts.ForceJSON && callErr.rejectsStructuredOutput() {
		logx.Warn().
			Str("component", "llm_client").
			Int("status", callErr.Status).
			Str("error", callErr.Message).
			Msg("structured output rejected, retrying without response_format")
		text, callErr = c.complete(ctx, messages, opts, false)
	}
	if callErr != nil {
		logx.Warn().
			Str("component", "llm_client").
			Str("kind", string(callErr.Kind)).
			Str("error", callErr.Message).
			Msg("completion failed, using offline reply")
		return offline(messages, callErr)
	}

	if last := model.LastAssistant(messages); last != "" && strings.TrimSpace(text) == strings.TrimSpace(last) {
		logx.Warn().Str("component", "llm_client").Msg("remote repeated the previous reply")
		return offline(messages, &CallError{Kind: KindDuplicate, Message: DuplicateReplyMessage})
	}

	return Reply{Text: text}
}

func offline(messages []*schema.Message, callErr *CallError) Reply {
	if callErr == nil {
		return Reply{Text: Substitute(messages, ""), Offline: true}
	}
	return Reply{Text: Substitute(messages, callErr.Message), Err: callErr, Offline: true}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []wireMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// complete performs one POST. With structured=false and opts.ForceJSON the JSON
// requirement is expressed as a leading system instruction instead.
func (c *Client) complete(ctx context.Context, messages []*schema.Message, opts ChatOptions, structured bool) (string, *CallError) {
	req := chatRequest{
		Model:       c.model,
		Messages:    toWire(recent(messages, opts.MaxHistory)),
		Temperature: opts.Temperature,
	}
	if opts.ForceJSON {
		if structured {
			req.ResponseFormat = &responseFormat{Type: "json_object"}
		} else {
			req.Messages = append([]wireMessage{{Role: string(schema.System), Content: jsonOnlyInstruction}}, req.Messages...)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", &CallError{Kind: KindDecode, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", &CallError{Kind: KindTransport, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &CallError{Kind: KindTransport, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CallError{Kind: KindTransport, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", remoteError(resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &CallError{Kind: KindDecode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		return "", &CallError{Kind: KindDecode, Message: "decode response: missing choices[0].message.content"}
	}

	ev := logx.Debug().
		Str("component", "llm_client").
		Str("model", c.model).
		Bool("structured", req.ResponseFormat != nil).
		Dur("latency", time.Since(start))
	if out.Usage != nil {
		ev = ev.Int("prompt_tokens", out.Usage.PromptTokens).
			Int("completion_tokens", out.Usage.CompletionTokens).
			Int("total_tokens", out.Usage.TotalTokens)
	}
	ev.Msg("LLM usage")

	return *out.Choices[0].Message.Content, nil
}

// recent keeps the leading system messages and the last limit of the rest.
func recent(messages []*schema.Message, limit int) []*schema.Message {
	head := 0
	for head < len(messages) && messages[head] != nil && messages[head].Role == schema.System {
		head++
	}
	if limit <= 0 || len(messages)-head <= limit {
		return messages
	}
	out := make([]*schema.Message, 0, head+limit)
	out = append(out, messages[:head]...)
	return append(out, messages[len(messages)-limit:]...)
}

func toWire(messages []*schema.Message) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		out = append(out, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// IsKind reports whether err is a CallError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var callErr *CallError
	return errors.As(err, &callErr) && callErr.Kind == kind
}
