package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/ai-anxiety-coach/server/internal/coach/llm"
	"github.com/ai-anxiety-coach/server/internal/coach/model"
	"github.com/ai-anxiety-coach/server/internal/coach/observers"
	"github.com/ai-anxiety-coach/server/internal/coach/repo"
	"github.com/ai-anxiety-coach/server/internal/coach/session"
	"github.com/ai-anxiety-coach/server/internal/core"
	"github.com/ai-anxiety-coach/server/internal/interventions"
	"github.com/ai-anxiety-coach/server/internal/server"
	"github.com/ai-anxiety-coach/server/internal/terminal"
	logx "github.com/ai-anxiety-coach/server/pkg/logger"
	pkgredis "github.com/ai-anxiety-coach/server/pkg/redis"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Env string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// Coach
	LLM     model.LLMConfig
	Library model.LibraryConfig
	Session model.SessionConfig
	Server  model.ServerConfig
}

func loadConfig() (*AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return &cfg, nil
}

// app holds the wired dependencies shared by all commands.
type app struct {
	cfg     *AppConfig
	service *session.Service
	close   func()
}

func newApp(ctx context.Context, cfg *AppConfig) (*app, error) {
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Env)})
	observers.Register()

	ttl, err := time.ParseDuration(cfg.Session.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL '%s': %w", cfg.Session.TTL, err)
	}

	lib, err := loadLibrary(cfg.Library)
	if err != nil {
		return nil, err
	}

	closer := func() {}
	var sessions model.SessionRepository
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialise redis client: %w", err)
		}
		closer = func() { _ = rdb.Close() }
		sessions = repo.NewRedisSessionRepository(rdb, ttl)
		logx.Info().Msg("connected to redis")
	} else {
		sessions = repo.NewMemorySessionRepository(ttl)
		logx.Info().Msg("REDIS_URL not set, keeping sessions in memory")
	}

	client := llm.New(cfg.LLM)
	logx.Info().Str("mode", client.Mode()).Int("actions", lib.Len()).Msg("coach ready")

	svc := session.NewService(sessions, client, lib, session.Config{
		ChatTemperature:     cfg.LLM.ChatTemperature,
		AnalyzerTemperature: cfg.LLM.AnalyzerTemperature,
		MaxTurns:            cfg.Session.MaxTurns,
	})
	return &app{cfg: cfg, service: svc, close: closer}, nil
}

func loadLibrary(cfg model.LibraryConfig) (*interventions.Library, error) {
	if cfg.Path == "" {
		return interventions.LoadDefault()
	}
	return interventions.Load(cfg.Path)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coach",
		Short:         "AI job-anxiety screening and micro-action coach",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newRunCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			return server.ListenAndServe(ctx, cfg.Server.Addr, server.NewHandler(a.service, cfg.Server))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Walk through one coaching session in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			return terminal.NewRunner(a.service, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logx.Error().Err(err).Msg("coach failed")
		os.Exit(1)
	}
}
