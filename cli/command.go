package cli

import (
	"github.com/grovetools/claudelogs/config"
	"github.com/grovetools/claudelogs/errors"
	"github.com/grovetools/claudelogs/logging"
	"github.com/grovetools/claudelogs/pkg/profiling"
	"github.com/grovetools/claudelogs/pkg/transcript"
	"github.com/grovetools/claudelogs/util/pathutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds the standard flags shared by every command.
type CommandOptions struct {
	ConfigFile string
	ClaudeDir  string
	Verbose    bool
	JSONOutput bool
	NoColor    bool
}

// NewStandardCommand creates a command carrying the standard flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ConfigureColor(GetOptions(cmd).NoColor)
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to a claudelogs config file")
	cmd.PersistentFlags().String("claude-dir", "", "Claude Code configuration directory")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.SetHelpFunc(styledHelpFunc)
	return cmd
}

// GetOptions extracts the standard flags from a command.
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	claudeDir, _ := cmd.Flags().GetString("claude-dir")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	return CommandOptions{
		ConfigFile: configFile,
		ClaudeDir:  claudeDir,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
		NoColor:    noColor,
	}
}

// GetLogger returns the CLI logger, raised to debug by --verbose.
func GetLogger(cmd *cobra.Command) *logrus.Entry {
	entry := logging.NewLogger("claudelogs")
	if GetOptions(cmd).Verbose {
		entry.Logger.SetLevel(logrus.DebugLevel)
	}
	return entry
}

// LoadConfig loads --config when given, the default config file otherwise,
// and applies --claude-dir on top.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := GetOptions(cmd)

	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.Load(opts.ConfigFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if opts.ClaudeDir != "" {
		cfg.ClaudeDir = opts.ClaudeDir
	}
	if cfg.ClaudeDir != "" {
		if cfg.ClaudeDir, err = pathutil.Expand(cfg.ClaudeDir); err != nil {
			return nil, errors.InvalidInput("claude_dir", cfg.ClaudeDir, err.Error())
		}
	}
	return cfg, nil
}

// NewService builds the transcript service the command operates on. Its
// logger follows the "logging" section of the loaded config.
func NewService(cmd *cobra.Command) (*transcript.Service, error) {
	defer profiling.Start(cmd.Context(), "setup").Stop()

	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logCfg, err := logging.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	log := logging.New("claudelogs", logCfg, cmd.ErrOrStderr())
	if GetOptions(cmd).Verbose {
		log.Logger.SetLevel(logrus.DebugLevel)
	}

	opts := transcript.OptionsFromConfig(cfg)
	opts.Logger = log
	return transcript.NewService(opts)
}
