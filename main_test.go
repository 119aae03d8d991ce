package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "testing")
	t.Setenv("LLM_BASE_URL", "https://llm.example/v1")
	t.Setenv("LLM_API_KEY", "k")
	t.Setenv("LLM_MODEL", "m")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_READ_TIMEOUT", "7")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "testing", cfg.Env)
	assert.Equal(t, "https://llm.example/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "k", cfg.LLM.APIKey)
	assert.Equal(t, "m", cfg.LLM.Model)
	assert.Equal(t, 30, cfg.LLM.Timeout)
	assert.InDelta(t, 0.4, cfg.LLM.ChatTemperature, 1e-6)
	assert.InDelta(t, 0.2, cfg.LLM.AnalyzerTemperature, 1e-6)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 7, cfg.Redis.ReadTimeout)
	assert.Equal(t, 3, cfg.Redis.WriteTimeout)
	assert.Equal(t, "2h", cfg.Session.TTL)
	assert.Equal(t, 40, cfg.Session.MaxTurns)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestNewAppInMemory(t *testing.T) {
	cfg := &AppConfig{Env: "testing"}
	cfg.Session.TTL = "30m"

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.close()
	assert.Equal(t, "offline", a.service.Mode())
}

func TestNewAppRejectsBadTTL(t *testing.T) {
	cfg := &AppConfig{Env: "testing"}
	cfg.Session.TTL = "soon"

	_, err := newApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "SESSION_TTL")
}

func TestNewAppMissingLibrary(t *testing.T) {
	cfg := &AppConfig{Env: "testing"}
	cfg.Session.TTL = "1h"
	cfg.Library.Path = "does/not/exist.json"

	_, err := newApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	t.Setenv("APP_ENV", "testing")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("REDIS_URL", "")

	input := strings.Join([]string{
		"1", "1", "1", "1", "1", "1",
		"1", "1", "1", "1",
		"",
		"/done",
		"",
		"",
		"n",
		"",
	}, "\n") + "\n"

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"run"})
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "0/10")
	assert.Contains(t, out.String(), "变化：+0")
}
