package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/spf13/cobra"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the languages the assistant understands",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "CODE\tNAME\tNATIVE")
			for _, l := range domain.SupportedLanguages() {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s %s\n", l.Code, l.Name, l.Flag, l.NativeName)
			}
			_ = w.Flush()
		},
	}
}

func newConversationsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations [id]",
		Aliases: []string{"history"},
		Short:   "List saved conversations, or show one by id",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.session.Start(cmd.Context()); err != nil {
				return err
			}

			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid conversation id %q", args[0])
				}
				msgs, err := a.session.ConversationMessages(cmd.Context(), id)
				if err != nil {
					return err
				}
				for _, m := range msgs {
					a.printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.Kitchen), m.Role, m.Content)
				}
				return nil
			}

			convs, err := a.session.Conversations(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tUPDATED")
			for _, c := range convs {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", c.ID, c.Title, c.MessageCount, c.UpdatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
	return cmd
}
