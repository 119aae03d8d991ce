// Package session drives one coaching session through assessment, chat,
// summary, actions and outcome.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ai-anxiety-coach/server/internal/assessment"
	"github.com/ai-anxiety-coach/server/internal/coach/analyzer"
	"github.com/ai-anxiety-coach/server/internal/coach/conversations"
	"github.com/ai-anxiety-coach/server/internal/coach/llm"
	"github.com/ai-anxiety-coach/server/internal/coach/model"
	"github.com/ai-anxiety-coach/server/internal/coach/prompts"
	errx "github.com/ai-anxiety-coach/server/internal/core/error"
	"github.com/ai-anxiety-coach/server/internal/interventions"
	"github.com/ai-anxiety-coach/server/internal/routing"
	logx "github.com/ai-anxiety-coach/server/pkg/logger"
)

const (
	minIntensity = 0
	maxIntensity = 10
)

// ChatClient is satisfied by *llm.Client.
type ChatClient interface {
	analyzer.ChatClient
	Mode() string
}

type Config struct {
	ChatTemperature     float32
	AnalyzerTemperature float32
	MaxTurns            int
}

type Service struct {
	repo     model.SessionRepository
	messages *conversations.MessagesManager
	client   ChatClient
	analyzer *analyzer.Analyzer
	library  *interventions.Library
	cfg      Config

	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(repo model.SessionRepository, client ChatClient, library *interventions.Library, cfg Config, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		messages: conversations.NewMessagesManager(repo),
		client:   client,
		analyzer: analyzer.New(client, analyzer.WithTemperature(cfg.AnalyzerTemperature)),
		library:  library,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode reports whether chat replies come from the remote model or the offline script.
func (s *Service) Mode() string {
	return s.client.Mode()
}

// Create starts a session waiting for its assessment.
func (s *Service) Create(ctx context.Context) (*model.SessionState, error) {
	state := &model.SessionState{
		ID:        s.newID(),
		Stage:     model.StageAssessment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.SaveState(ctx, state); err != nil {
		return nil, err
	}
	logx.Info().Str("component", "session").Str("sessionID", state.ID).Msg("session created")
	return state, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.SessionState, error) {
	return s.repo.LoadState(ctx, id)
}

// Transcript returns the chat turns of a session.
func (s *Service) Transcript(ctx context.Context, id string) ([]*model.TranscriptEntry, error) {
	if _, err := s.repo.LoadState(ctx, id); err != nil {
		return nil, err
	}
	msgs, err := s.messages.Transcript(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]*model.TranscriptEntry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &model.TranscriptEntry{Role: string(m.Role), Content: m.Content})
	}
	return out, nil
}

// Reset drops the session state and its transcript.
func (s *Service) Reset(ctx context.Context, id string) error {
	if _, err := s.repo.LoadState(ctx, id); err != nil {
		return err
	}
	if err := s.messages.Clear(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteState(ctx, id); err != nil {
		return err
	}
	logx.Info().Str("component", "session").Str("sessionID", id).Msg("session reset")
	return nil
}

type AssessmentInput struct {
	Neuroticism []int  `json:"neuroticism"`
	JobAnxiety  []int  `json:"job_anxiety"`
	Role        string `json:"role"`
}

// SubmitAssessment scores both questionnaires and opens the chat.
func (s *Service) SubmitAssessment(ctx context.Context, id string, in AssessmentInput) (*model.SessionState, error) {
	state, err := s.repo.LoadState(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Stage != model.StageAssessment {
		return nil, errx.Conflict("assessment already submitted")
	}

	n, err := assessment.ScoreNeuroticism(in.Neuroticism)
	if err != nil {
		return nil, err
	}
	j, err := assessment.ScoreJobAnxiety(in.JobAnxiety)
	if err != nil {
		return nil, err
	}

	state.Role = in.Role
	state.NeuroticismTotal = n.Total
	state.Band = n.Band
	state.JobAnxietyTotal = j.Total
	state.Intensity = j.Intensity
	state.Stage = model.StageChat
	if err := s.repo.SaveState(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Turn is the assistant side of one chat exchange.
type Turn struct {
	Reply   string `json:"reply"`
	Offline bool   `json:"offline"`
	Error   string `json:"error,omitempty"`
	// Messages is the transcript length after this exchange.
	Messages int `json:"messages"`
}

// SendMessage stores a user turn, asks the client for a reply and stores it.
// Remote failures are not errors here; they surface in Turn.Error.
func (s *Service) SendMessage(ctx context.Context, id, text string) (*Turn, error) {
	state, err := s.repo.LoadState(ctx, id)
	if err != nil {
		return nil, err
	}
	switch state.Stage {
	case model.StageAssessment:
		return nil, errx.Conflict("assessment required before chat")
	case model.StageAction:
		return nil, errx.Conflict("chat already summarized")
	}

	if err := s.messages.ProcessUserMessage(ctx, id, text); err != nil {
		return nil, err
	}

	system, err := prompts.RenderChatSystem(ctx, state.Band, state.Role)
	if err != nil {
		return nil, fmt.Errorf("render chat prompt: %w", err)
	}
	msgs, err := s.messages.BuildChatContext(ctx, id, system)
	if err != nil {
		return nil, err
	}

	reply := s.client.Chat(ctx, msgs, llm.ChatOptions{
		Temperature: s.cfg.ChatTemperature,
		MaxHistory:  s.cfg.MaxTurns,
	})
	if err := s.messages.SaveReply(ctx, id, reply.Text); err != nil {
		return nil, err
	}

	state.LastError = reply.ErrText()
	if err := s.repo.SaveState(ctx, state); err != nil {
		return nil, err
	}
	count, err := s.messages.Count(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Turn{Reply: reply.Text, Offline: reply.Offline, Error: state.LastError, Messages: count}, nil
}

// Summarize closes the chat. confirmed, when set, replaces the scored
// intensity as the baseline for the outcome.
func (s *Service) Summarize(ctx context.Context, id string, confirmed *int) (*model.SessionState, error) {
	state, err := s.repo.LoadState(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Stage == model.StageAssessment {
		return nil, errx.Conflict("assessment required before summary")
	}
	if confirmed != nil && (*confirmed < minIntensity || *confirmed > maxIntensity) {
		return nil, errx.Validation("confirmed intensity out of range")
	}

	transcript, err := s.messages.Transcript(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := s.analyzer.Analyze(ctx, transcript)

	driver := summary.Driver
	if !driver.Valid() {
		driver = model.DefaultDriver
	}

	state.Summary = &summary
	state.Driver = driver
	state.LastError = summary.LastError
	if confirmed != nil {
		v := *confirmed
		state.ConfirmedIntensity = &v
	}
	state.Stage = model.StageAction
	if err := s.repo.SaveState(ctx, state); err != nil {
		return nil, err
	}

	logx.Info().
		Str("component", "session").
		Str("sessionID", id).
		Str("driver", string(driver)).
		Int("intensity_guess", summary.IntensityGuess).
		Msg("chat summarized")
	return state, nil
}

// Actions routes the summarized driver and the assessed band to action cards.
func (s *Service) Actions(ctx context.Context, id string) ([]model.ActionCard, error) {
	state, err := s.repo.LoadState(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Stage != model.StageAction || state.Summary == nil {
		return nil, errx.Conflict("summary required before actions")
	}
	return routing.Route(state.Driver, state.Band, s.library)
}

type OutcomeInput struct {
	ActionTitle string `json:"action_title"`
	Completed   bool   `json:"completed"`
	After       int    `json:"after"`
}

// RecordOutcome compares the post-action intensity with the baseline. A drop
// of at least one point counts as improved.
func (s *Service) RecordOutcome(ctx context.Context, id string, in OutcomeInput) (*model.Outcome, error) {
	state, err := s.repo.LoadState(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Stage != model.StageAction {
		return nil, errx.Conflict("summary required before outcome")
	}
	if in.After < minIntensity || in.After > maxIntensity {
		return nil, errx.Validation("intensity out of range")
	}

	before := state.BaselineIntensity()
	outcome := &model.Outcome{
		ActionTitle: in.ActionTitle,
		Completed:   in.Completed,
		Before:      before,
		After:       in.After,
		Delta:       in.After - before,
		Improved:    in.After <= before-1,
	}
	state.Outcome = outcome
	if err := s.repo.SaveState(ctx, state); err != nil {
		return nil, err
	}
	return outcome, nil
}
