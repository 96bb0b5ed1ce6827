package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/claudelogs/cli"
	"github.com/grovetools/claudelogs/errors"
	"github.com/grovetools/claudelogs/pkg/claudepath"
	"github.com/grovetools/claudelogs/pkg/profiling"
	"github.com/grovetools/claudelogs/pkg/transcript"
	"github.com/grovetools/claudelogs/util/pathutil"
	"github.com/grovetools/claudelogs/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the claudelogs command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"claudelogs",
		"Browse and follow Claude Code session transcripts",
	)
	root.Long = `Reads the JSONL transcripts Claude Code writes under its projects
directory and turns them into sessions, project summaries and live feeds.

Examples:
  # Sessions of the current directory, newest first
  claudelogs sessions

  # Sessions of another project, as JSON
  claudelogs sessions -p ~/src/app --json

  # Print every message of one session
  claudelogs show 3f1c9a2e-... --messages`
	cli.SetVersionTemplate(root, version.GetInfo())

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(root)
	root.PersistentPreRun = nil
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cli.ConfigureColor(cli.GetOptions(cmd).NoColor)
		return profiler.PreRun(cmd, args)
	}
	root.PersistentPostRun = profiler.PostRun

	root.AddCommand(
		NewProjectsCmd(),
		NewSessionsCmd(),
		NewRecentCmd(),
		NewShowCmd(),
		NewProjectCmd(),
		NewWatchCmd(),
		NewFollowCmd(),
		NewPathsCmd(),
		NewSchemaCmd(),
		NewConfigCmd(),
		cli.NewVersionCommand("claudelogs"),
	)
	cli.ApplyStyledHelpRecursive(root)
	return root
}

// addProjectFlag registers --project, defaulting to the working directory.
func addProjectFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("project", "p", "", "Project path (default: current directory)")
}

// resolveProject maps --project to a project reference whose encoding names
// an existing transcript directory.
func resolveProject(cmd *cobra.Command, svc *transcript.Service) (string, error) {
	target, err := projectPath(cmd)
	if err != nil {
		return "", err
	}

	name := svc.FindProjectByPath(target)
	if name == "" {
		return "", errors.ProjectNotFound(target)
	}
	return projectRef(target, name), nil
}

// projectRef is target when it encodes to name. After a suffix match it is
// the directory name itself: encoded names contain no separators, so they
// encode to themselves, while decoding them is lossy.
func projectRef(target, name string) string {
	if claudepath.EncodePath(target) == name {
		return target
	}
	return name
}

// projectPath returns --project, or the working directory, in the spelling
// Claude Code uses for directory names.
func projectPath(cmd *cobra.Command) (string, error) {
	target, _ := cmd.Flags().GetString("project")
	if target == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Internal(err, "failed to get current directory")
		}
		target = cwd
	}
	expanded, err := pathutil.Expand(target)
	if err != nil {
		return "", errors.InvalidInput("project", target, err.Error())
	}
	canonical, err := pathutil.CanonicalPath(expanded)
	if err != nil {
		return expanded, nil
	}
	return canonical, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
