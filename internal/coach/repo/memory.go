// Package repo stores session state and transcripts, in Redis or in process.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ai-anxiety-coach/server/internal/coach/model"
	errx "github.com/ai-anxiety-coach/server/internal/core/error"
)

type memorySession struct {
	state    []byte
	messages []*schema.Message
	expires  time.Time
}

// MemorySessionRepository is the process-local repository used when no Redis
// URL is configured. Entries expire after ttl of inactivity, like the Redis keys.
type MemorySessionRepository struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memorySession
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

// lookup returns the live entry for id, dropping it when expired. Callers hold mu.
func (r *MemorySessionRepository) lookup(id string) *memorySession {
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	if !s.expires.IsZero() && !r.now().Before(s.expires) {
		delete(r.sessions, id)
		return nil
	}
	return s
}

func (r *MemorySessionRepository) touch(id string) *memorySession {
	s := r.lookup(id)
	if s == nil {
		s = &memorySession{}
		r.sessions[id] = s
	}
	if r.ttl > 0 {
		s.expires = r.now().Add(r.ttl)
	}
	return s
}

func (r *MemorySessionRepository) AddMessage(_ context.Context, sessionID string, message *schema.Message) error {
	if message == nil {
		return errx.Validation("nil message")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	m := *message
	s := r.touch(sessionID)
	s.messages = append(s.messages, &m)
	return nil
}

func (r *MemorySessionRepository) LoadHistory(_ context.Context, sessionID string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := []*schema.Message{}
	if s := r.lookup(sessionID); s != nil {
		for _, m := range s.messages {
			c := *m
			msgs = append(msgs, &c)
		}
	}
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *MemorySessionRepository) ClearHistory(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.lookup(sessionID); s != nil {
		s.messages = nil
		if s.state == nil {
			delete(r.sessions, sessionID)
		}
	}
	return nil
}

func (r *MemorySessionRepository) GetMessageCount(_ context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.lookup(sessionID); s != nil {
		return len(s.messages), nil
	}
	return 0, nil
}

func (r *MemorySessionRepository) SaveState(_ context.Context, state *model.SessionState) error {
	if state == nil || state.ID == "" {
		return errx.Validation("session state without id")
	}
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch(state.ID).state = b
	return nil
}

func (r *MemorySessionRepository) LoadState(_ context.Context, sessionID string) (*model.SessionState, error) {
	r.mu.Lock()
	s := r.lookup(sessionID)
	var b []byte
	if s != nil {
		b = s.state
	}
	r.mu.Unlock()

	if b == nil {
		return nil, errx.NotFound(errx.RedisNotFoundMessage)
	}
	var state model.SessionState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &state, nil
}

func (r *MemorySessionRepository) DeleteState(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(sessionID)
	if s == nil {
		return nil
	}
	s.state = nil
	if len(s.messages) == 0 {
		delete(r.sessions, sessionID)
	}
	return nil
}

var _ model.SessionRepository = (*MemorySessionRepository)(nil)
