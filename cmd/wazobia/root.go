package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ashureev/wazobia-session/internal/readiness"
	"github.com/ashureev/wazobia-session/internal/remote"
	"github.com/ashureev/wazobia-session/internal/session"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "wazobia",
		Short:         "Chat with the Wazobia assistant in Hausa, Yoruba, Pidgin or English",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, flags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", "", "assistant service URL (overrides WAZOBIA_API_URL)")
	pf.StringVar(&flags.stateDB, "state-db", "", "local state database (overrides STATE_DB_PATH)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "chat",
			Short: "Start an interactive chat (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runChat(cmd, flags)
			},
		},
		newLoginCmd(flags),
		newSignupCmd(flags),
		newLogoutCmd(flags),
		newWhoamiCmd(flags),
		newHealthCmd(flags),
		newLanguagesCmd(),
		newConversationsCmd(flags),
	)
	return cmd
}

func runChat(cmd *cobra.Command, flags *globalFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prompts := make(chan session.PromptReason, 1)
	a, err := newApp(ctx, cmd, flags, true, session.WithAuthPrompt(func(r session.PromptReason) {
		select {
		case prompts <- r:
		default:
		}
	}))
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.start(ctx); err != nil {
		return err
	}

	r := &repl{app: a, in: bufio.NewScanner(cmd.InOrStdin()), prompts: prompts}
	return r.run(ctx)
}

// start probes the service while the wake-up notice animates.
func (a *app) start(ctx context.Context) error {
	notice := readiness.StartNotice(ctx, readiness.NoticeConfig{
		Render: func(line string) { a.printf("\r\033[K%s", line) },
	})
	state, err := a.session.Start(ctx)
	notice.Stop()
	a.printf("\r\033[K")

	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	if state.Phase == readiness.Unreachable {
		a.printf("The assistant did not answer after %d attempts. Messages may fail until it wakes up.\n", state.Attempt)
	}
	if sess := a.session.Auth().Session(); sess.Authenticated() {
		a.printf("Signed in as %s.\n", sess.User.Username)
	} else {
		a.printf("Chatting anonymously: %d free messages left.\n", a.session.Quota().Remaining())
	}
	return nil
}

func newHealthCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the assistant service is awake",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.Ping(cmd.Context()); err != nil {
				var apiErr *remote.APIError
				if errors.As(err, &apiErr) {
					return fmt.Errorf("service is not ready (%d)", apiErr.Status)
				}
				return fmt.Errorf("service unreachable: %w", err)
			}
			a.printf("%s is ready\n", a.cfg.APIURL)
			return nil
		},
	}
}
