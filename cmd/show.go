package cmd

import (
	"fmt"

	"github.com/grovetools/claudelogs/cli"
	"github.com/grovetools/claudelogs/errors"
	"github.com/grovetools/claudelogs/pkg/profiling"
	"github.com/grovetools/claudelogs/pkg/transcript"
	"github.com/spf13/cobra"
)

// SessionView is the JSON shape of `claudelogs show`.
type SessionView struct {
	*transcript.Session
	Messages []transcript.Message `json:"messages,omitempty"`
}

func NewRecentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recently updated sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.NewService(cmd)
			if err != nil {
				return err
			}
			project, err := resolveProject(cmd, svc)
			if err != nil {
				return err
			}
			sessions, err := svc.RecentSessions(cmd.Context(), project, limit)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), sessions)
			}
			cli.RenderSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
	addProjectFlag(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", transcript.DefaultRecentLimit, "Maximum number of sessions")
	return cmd
}

func NewShowCmd() *cobra.Command {
	var withMessages bool
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session built from all of its messages",
		Long: `Read every transcript of the project and assemble the session with the
given id: time range, branch, working directory and token usage.

Examples:
  claudelogs show 3f1c9a2e-7d41-4b8e-9a0c-1e2f3a4b5c6d
  claudelogs show 3f1c9a2e-7d41-4b8e-9a0c-1e2f3a4b5c6d --messages`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.NewService(cmd)
			if err != nil {
				return err
			}
			project, err := resolveProject(cmd, svc)
			if err != nil {
				return err
			}
			sessionID := args[0]
			ctx := cmd.Context()

			span := profiling.Start(ctx, "assemble")
			session, err := svc.SessionWithMessages(ctx, project, sessionID)
			span.Stop()
			if err != nil {
				return err
			}
			if session == nil {
				return errors.SessionNotFound(project, sessionID)
			}

			view := SessionView{Session: session}
			if withMessages {
				if view.Messages, err = svc.SessionMessages(ctx, project, sessionID); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(out, view)
			}
			cli.RenderSession(out, session)
			if withMessages {
				fmt.Fprintln(out)
				cli.RenderMessages(out, view.Messages)
			}
			return nil
		},
	}
	addProjectFlag(cmd)
	cmd.Flags().BoolVarP(&withMessages, "messages", "m", false, "Also print every message")
	return cmd
}

func NewProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Summarize every session of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.NewService(cmd)
			if err != nil {
				return err
			}
			project, err := resolveProject(cmd, svc)
			if err != nil {
				return err
			}
			span := profiling.Start(cmd.Context(), "aggregate")
			data, err := svc.ProjectData(cmd.Context(), project)
			span.Stop()
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), data)
			}
			cli.RenderProjectData(cmd.OutOrStdout(), data)
			return nil
		},
	}
	addProjectFlag(cmd)
	return cmd
}
