package cmd

import (
	"fmt"

	"github.com/grovetools/claudelogs/cli"
	"github.com/grovetools/claudelogs/errors"
	"github.com/grovetools/claudelogs/pkg/claudepath"
	"github.com/spf13/cobra"
)

// ProjectEntry is one row of `claudelogs projects`.
type ProjectEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func NewProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the projects Claude Code has transcripts for",
		Long: `List the encoded project directories under the Claude Code projects
directory, with the path each one decodes to. Decoding is lossy: a dash in
the original path comes back as a slash.

Examples:
  claudelogs projects
  claudelogs projects --find ~/src/app`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.NewService(cmd)
			if err != nil {
				return err
			}
			opts := cli.GetOptions(cmd)
			out := cmd.OutOrStdout()

			if find, _ := cmd.Flags().GetString("find"); find != "" {
				name := svc.FindProjectByPath(find)
				if name == "" {
					return errors.ProjectNotFound(find)
				}
				entry := ProjectEntry{Name: name, Path: claudepath.DecodePath(name)}
				if opts.JSONOutput {
					return cli.PrintJSON(out, entry)
				}
				fmt.Fprintln(out, entry.Name)
				return nil
			}

			names, err := svc.Projects(cmd.Context())
			if err != nil {
				return err
			}
			entries := make([]ProjectEntry, 0, len(names))
			for _, name := range names {
				entries = append(entries, ProjectEntry{Name: name, Path: claudepath.DecodePath(name)})
			}
			if opts.JSONOutput {
				return cli.PrintJSON(out, entries)
			}

			if !svc.IsInstalled() {
				fmt.Fprintln(out, cli.DefaultTheme.Warning.Render("Claude Code directory not found: ")+svc.ConfigDir())
				return nil
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, cli.DefaultTheme.Muted.Render("No projects found."))
				return nil
			}
			tbl := cli.NewStyledTable("PROJECT", "DIRECTORY")
			for _, e := range entries {
				tbl.Row(e.Path, cli.DefaultTheme.Muted.Render(e.Name))
			}
			fmt.Fprintln(out, tbl.Render())
			return nil
		},
	}
	cmd.Flags().String("find", "", "Print the project directory matching a path")
	return cmd
}
