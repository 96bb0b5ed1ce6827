package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/claudelogs/cli"
	"github.com/grovetools/claudelogs/pkg/claudepath"
	"github.com/grovetools/claudelogs/pkg/transcript"
	"github.com/grovetools/claudelogs/util/pathutil"
	"github.com/spf13/cobra"
)

// WatchUpdate is printed by `claudelogs watch --json` after every reload.
type WatchUpdate struct {
	At       time.Time `json:"at"`
	Messages int       `json:"messages"`
	Sessions int       `json:"sessions"`
	Latest   string    `json:"latest,omitempty"`
}

func summarizeUpdate(msgs []transcript.Message, now time.Time) WatchUpdate {
	ids := make(map[string]struct{})
	for i := range msgs {
		ids[msgs[i].SessionID] = struct{}{}
	}
	u := WatchUpdate{At: now, Messages: len(msgs), Sessions: len(ids)}
	if len(msgs) > 0 {
		u.Latest = transcript.Preview(msgs[len(msgs)-1].Message.Content)
	}
	return u
}

func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-read a project's history whenever a transcript changes",
		Long: `Watch the project's transcript directory and reload the chat history
once a changed file has stopped growing. The directory does not need to
exist yet. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.NewService(cmd)
			if err != nil {
				return err
			}
			// A project without transcripts yet is fine here.
			project, err := projectPath(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			out := cmd.OutOrStdout()
			jsonOutput := cli.GetOptions(cmd).JSONOutput
			var mu sync.Mutex
			unsubscribe, err := svc.WatchChatHistory(ctx, project, func(msgs []transcript.Message) {
				mu.Lock()
				defer mu.Unlock()
				printUpdate(out, summarizeUpdate(msgs, time.Now()), jsonOutput)
			})
			if err != nil {
				return err
			}
			defer unsubscribe()

			if !jsonOutput {
				dir := claudepath.ProjectDir(svc.ConfigDir(), project)
				fmt.Fprintf(out, "%s %s\n", cli.DefaultTheme.Muted.Render("Watching"), dir)
			}
			<-ctx.Done()
			return nil
		},
	}
	addProjectFlag(cmd)
	return cmd
}

func printUpdate(w io.Writer, u WatchUpdate, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.Marshal(u)
		fmt.Fprintln(w, string(data))
		return
	}
	line := fmt.Sprintf("%s  %d messages in %d sessions",
		u.At.Local().Format(time.TimeOnly), u.Messages, u.Sessions)
	if u.Latest != "" {
		line += "  " + cli.DefaultTheme.Muted.Render(strings.TrimSpace(u.Latest))
	}
	fmt.Fprintln(w, line)
}

func NewFollowCmd() *cobra.Command {
	var opts transcript.FollowOptions
	cmd := &cobra.Command{
		Use:   "follow <session-id|file>",
		Short: "Print messages as they are appended to one transcript",
		Long: `Tail one session transcript and print each message as it is written.
The argument is a session id of the project or a path to a .jsonl file.

Examples:
  claudelogs follow 3f1c9a2e-7d41-4b8e-9a0c-1e2f3a4b5c6d --from-start
  claudelogs follow ~/.claude/projects/-home-me-app/3f1c9a2e.jsonl --poll`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.NewService(cmd)
			if err != nil {
				return err
			}

			path := args[0]
			if strings.HasSuffix(path, ".jsonl") {
				if path, err = pathutil.Expand(path); err != nil {
					return err
				}
			} else {
				project, err := resolveProject(cmd, svc)
				if err != nil {
					return err
				}
				path = filepath.Join(claudepath.ProjectDir(svc.ConfigDir(), project), path+".jsonl")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			out := cmd.OutOrStdout()
			jsonOutput := cli.GetOptions(cmd).JSONOutput
			return svc.Follow(ctx, path, opts, func(m transcript.Message) {
				if jsonOutput {
					data, _ := json.Marshal(m)
					fmt.Fprintln(out, string(data))
					return
				}
				cli.RenderMessages(out, []transcript.Message{m})
			})
		},
	}
	addProjectFlag(cmd)
	cmd.Flags().BoolVar(&opts.FromStart, "from-start", false, "Print the existing messages first")
	cmd.Flags().BoolVar(&opts.Poll, "poll", false, "Poll for changes instead of using inotify")
	return cmd
}
