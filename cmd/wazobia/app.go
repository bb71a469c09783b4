package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ashureev/wazobia-session/internal/config"
	"github.com/ashureev/wazobia-session/internal/readiness"
	"github.com/ashureev/wazobia-session/internal/remote"
	"github.com/ashureev/wazobia-session/internal/session"
	"github.com/ashureev/wazobia-session/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalFlags override values from the environment.
type globalFlags struct {
	apiURL   string
	stateDB  string
	logLevel string
}

// app holds the wired dependencies of one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.SQLiteStore
	client  *remote.Client
	session *session.Session
	out     io.Writer
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if flags.apiURL != "" {
		_ = os.Setenv("WAZOBIA_API_URL", flags.apiURL)
	}
	if flags.stateDB != "" {
		_ = os.Setenv("STATE_DB_PATH", flags.stateDB)
	}
	if flags.logLevel != "" {
		_ = os.Setenv("LOG_LEVEL", flags.logLevel)
	}
	return config.Load()
}

// newApp wires the client. Only the interactive chat keeps the wake-up notice
// on screen for its minimum time; one-shot commands skip it.
func newApp(ctx context.Context, cmd *cobra.Command, flags *globalFlags, interactive bool, opts ...session.Option) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	st, err := store.NewSQLite(cfg.StateDBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("state database health check: %w", err)
	}

	client, err := remote.NewClient(cfg.ClientConfig(), logger.With("component", "remote"))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	sessCfg := cfg.SessionConfig()
	if !interactive {
		sessCfg.Readiness.MinimumDisplay = readiness.Fixed(0)
	}
	sess, err := session.New(ctx, client, st, sessCfg, logger, opts...)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		client:  client,
		session: sess,
		out:     cmd.OutOrStdout(),
	}, nil
}

func (a *app) Close() {
	a.session.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close state database", "error", err)
	}
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
