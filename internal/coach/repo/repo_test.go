package repo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-anxiety-coach/server/internal/coach/model"
	errx "github.com/ai-anxiety-coach/server/internal/core/error"
)

// fakeRedis implements the handful of list and string commands the repository
// uses. Calling any other Cmdable method panics on the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable

	lists   map[string][]string
	strings map[string]string
	ttls    map[string]time.Duration
	failing error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		lists:   map[string][]string{},
		strings: map[string]string{},
		ttls:    map[string]time.Duration{},
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func (f *fakeRedis) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.failing != nil {
		return redis.NewIntResult(0, f.failing)
	}
	for _, v := range values {
		f.lists[key] = append(f.lists[key], asString(v))
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	_, isList := f.lists[key]
	_, isString := f.strings[key]
	if !isList && !isString {
		return redis.NewBoolResult(false, nil)
	}
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) LRange(_ context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	if f.failing != nil {
		return redis.NewStringSliceResult(nil, f.failing)
	}
	return redis.NewStringSliceResult(append([]string(nil), f.lists[key]...), nil)
}

func (f *fakeRedis) LLen(_ context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.lists[k]; ok {
			delete(f.lists, k)
			n++
		}
		if _, ok := f.strings[k]; ok {
			delete(f.strings, k)
			n++
		}
		delete(f.ttls, k)
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	if f.failing != nil {
		return redis.NewStatusResult("", f.failing)
	}
	f.strings[key] = asString(value)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failing != nil {
		return redis.NewStringResult("", f.failing)
	}
	v, ok := f.strings[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

// repositories runs the same contract against both implementations.
func repositories(t *testing.T) map[string]model.SessionRepository {
	t.Helper()
	return map[string]model.SessionRepository{
		"redis":  NewRedisSessionRepository(newFakeRedis(), time.Hour),
		"memory": NewMemorySessionRepository(time.Hour),
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("我担心失业")))
			require.NoError(t, r.AddMessage(ctx, "s1", schema.AssistantMessage("最害怕的结果是什么？", nil)))
			require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("收入")))
			require.NoError(t, r.AddMessage(ctx, "other", schema.UserMessage("x")))

			h, err := r.LoadHistory(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "s1", h.SessionID)
			require.Len(t, h.Messages, 3)
			assert.Equal(t, schema.User, h.Messages[0].Role)
			assert.Equal(t, "我担心失业", h.Messages[0].Content)
			assert.Equal(t, schema.Assistant, h.Messages[1].Role)
			assert.Equal(t, "收入", h.Messages[2].Content)

			n, err := r.GetMessageCount(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			require.NoError(t, r.ClearHistory(ctx, "s1"))
			h, err = r.LoadHistory(ctx, "s1")
			require.NoError(t, err)
			assert.Empty(t, h.Messages)

			other, err := r.GetMessageCount(ctx, "other")
			require.NoError(t, err)
			assert.Equal(t, 1, other)
		})
	}
}

func TestEmptyHistory(t *testing.T) {
	ctx := context.Background()
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			h, err := r.LoadHistory(ctx, "missing")
			require.NoError(t, err)
			assert.NotNil(t, h.Messages)
			assert.Empty(t, h.Messages)

			n, err := r.GetMessageCount(ctx, "missing")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	confirmed := 5
	state := &model.SessionState{
		ID:                 "s1",
		Stage:              model.StageAction,
		CreatedAt:          time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		NeuroticismTotal:   20,
		Band:               model.BandMid,
		JobAnxietyTotal:    14,
		Intensity:          6,
		Summary:            &model.ChatSummary{Driver: model.DriverJobLoss, IntensityGuess: 7, UnhelpfulThoughts: []string{"a"}, SuggestedActions: []string{}},
		Driver:             model.DriverJobLoss,
		ConfirmedIntensity: &confirmed,
	}

	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, r.SaveState(ctx, state))

			got, err := r.LoadState(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, state, got)

			got.Intensity = 1
			again, err := r.LoadState(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, 6, again.Intensity)

			require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("hi")))
			require.NoError(t, r.DeleteState(ctx, "s1"))

			_, err = r.LoadState(ctx, "s1")
			require.Error(t, err)
			assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))

			n, err := r.GetMessageCount(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			require.NoError(t, r.ClearHistory(ctx, "s1"))
			n, err = r.GetMessageCount(ctx, "s1")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestSaveStateRequiresID(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			err := r.SaveState(context.Background(), &model.SessionState{})
			assert.ErrorIs(t, err, errx.ErrValidation)
		})
	}
}

func TestRedisRepositoryAppliesTTL(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	r := NewRedisSessionRepository(rdb, 2*time.Hour)

	require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("hi")))
	require.NoError(t, r.SaveState(ctx, &model.SessionState{ID: "s1"}))

	assert.Equal(t, 2*time.Hour, rdb.ttls["session:s1:messages"])
	assert.Equal(t, 2*time.Hour, rdb.ttls["session:s1:state"])
}

func TestRedisRepositoryWrapsFailures(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	rdb.failing = errors.New("connection refused")
	r := NewRedisSessionRepository(rdb, time.Hour)

	err := r.AddMessage(ctx, "s1", schema.UserMessage("hi"))
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))

	_, err = r.LoadHistory(ctx, "s1")
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))

	_, err = r.LoadState(ctx, "s1")
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}

func TestRedisRepositoryRejectsCorruptMessage(t *testing.T) {
	rdb := newFakeRedis()
	rdb.lists["session:s1:messages"] = []string{"{not json"}
	_, err := NewRedisSessionRepository(rdb, 0).LoadHistory(context.Background(), "s1")
	assert.ErrorContains(t, err, "index 0")
}

func TestMemoryRepositoryExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewMemorySessionRepository(time.Hour)
	r.now = func() time.Time { return now }

	require.NoError(t, r.SaveState(ctx, &model.SessionState{ID: "s1"}))
	require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("hi")))

	now = now.Add(59 * time.Minute)
	_, err := r.LoadState(ctx, "s1")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = r.LoadState(ctx, "s1")
	assert.ErrorIs(t, err, errx.ErrNotFound)
	n, err := r.GetMessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, n)
}
