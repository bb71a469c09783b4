package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/wazobia-session/internal/quota"
	"github.com/ashureev/wazobia-session/internal/remote"
	"github.com/spf13/cobra"
)

type credentialFlags struct {
	email    string
	username string
	password string
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the credential locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			in := bufio.NewScanner(cmd.InOrStdin())
			return a.login(cmd.Context(), in, creds)
		},
	}
	cmd.Flags().StringVar(&creds.email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newSignupCmd(flags *globalFlags) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			in := bufio.NewScanner(cmd.InOrStdin())
			return a.signup(cmd.Context(), in, creds)
		},
	}
	cmd.Flags().StringVar(&creds.email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.username, "username", "", "display name")
	cmd.Flags().StringVar(&creds.password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.session.Auth().Restore(cmd.Context()); err != nil {
				return err
			}
			return a.logout(cmd.Context())
		},
	}
}

func newWhoamiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			mgr := a.session.Auth()
			if _, err := mgr.Restore(cmd.Context()); err != nil {
				return err
			}
			sess, err := mgr.Refresh(cmd.Context())
			if err != nil && sess.Authenticated() {
				a.logger.Warn("Could not refresh account, showing stored record", "error", err)
			}
			if !sess.Authenticated() {
				a.printf("Not signed in. %d of %d free messages used.\n", a.session.Quota().Count(), quota.Limit)
				return nil
			}
			a.printf("%s <%s>\n", sess.User.Username, sess.User.Email)
			return nil
		},
	}
}

func (a *app) login(ctx context.Context, in *bufio.Scanner, creds *credentialFlags) error {
	email := ask(a.out, in, "Email", creds.email)
	password := ask(a.out, in, "Password", creds.password)

	sess, err := a.session.Auth().Login(ctx, email, password)
	if err != nil {
		return errors.New(remote.Detail(err, "Login failed. Please check your credentials."))
	}
	a.printf("Welcome back, %s!\n", sess.User.Username)
	return nil
}

func (a *app) signup(ctx context.Context, in *bufio.Scanner, creds *credentialFlags) error {
	email := ask(a.out, in, "Email", creds.email)
	username := ask(a.out, in, "Username", creds.username)
	password := ask(a.out, in, "Password", creds.password)

	sess, err := a.session.Auth().Signup(ctx, email, username, password)
	if err != nil {
		return errors.New(remote.Detail(err, "Signup failed. Please try again."))
	}
	a.printf("Welcome, %s! Your messages are now unlimited.\n", sess.User.Username)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if !a.session.Auth().Session().Authenticated() {
		a.printf("Not signed in.\n")
		return nil
	}
	if err := a.session.Auth().Logout(ctx); err != nil {
		return err
	}
	a.printf("Signed out.\n")
	return nil
}

// ask returns preset when set, otherwise prompts for a line on in.
func ask(out io.Writer, in *bufio.Scanner, label, preset string) string {
	if preset != "" {
		return preset
	}
	_, _ = fmt.Fprintf(out, "%s: ", label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}
