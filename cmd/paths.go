package cmd

import (
	"github.com/grovetools/claudelogs/cli"
	"github.com/grovetools/claudelogs/pkg/claudepath"
	"github.com/grovetools/claudelogs/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput lists the directories claudelogs reads from and writes to.
type PathsOutput struct {
	ClaudeDir   string `json:"claude_dir"`
	ProjectsDir string `json:"projects_dir"`
	ConfigDir   string `json:"config_dir"`
	StateDir    string `json:"state_dir"`
	CacheDir    string `json:"cache_dir"`
	LogDir      string `json:"log_dir"`
}

func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the directories used by claudelogs",
		Long: `Print the directories used by claudelogs as JSON.

- claude_dir: Claude Code configuration directory that is read
- projects_dir: per-project transcript directories
- config_dir: claudelogs config.yml / config.toml
- state_dir, cache_dir, log_dir: claudelogs' own files

CLAUDELOGS_HOME relocates every claudelogs directory under one root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			claudeDir := cfg.ClaudeDir
			if claudeDir == "" {
				claudeDir = claudepath.ConfigDir()
			}
			return cli.PrintJSON(cmd.OutOrStdout(), PathsOutput{
				ClaudeDir:   claudeDir,
				ProjectsDir: claudepath.ProjectsDir(claudeDir),
				ConfigDir:   paths.ConfigDir(),
				StateDir:    paths.StateDir(),
				CacheDir:    paths.CacheDir(),
				LogDir:      paths.LogDir(),
			})
		},
	}
}
