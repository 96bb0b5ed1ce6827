package cmd

import (
	"fmt"

	"github.com/grovetools/claudelogs/cli"
	"github.com/grovetools/claudelogs/config"
	"github.com/grovetools/claudelogs/errors"
	"github.com/grovetools/claudelogs/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewConfigCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Display the effective configuration",
		Long: `Print the configuration after defaults and flags are applied, with the
file it was loaded from. Useful for checking scan limits and watcher
timings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			source := cli.GetOptions(cmd).ConfigFile
			if source == "" {
				source = config.FindConfigFile(paths.ConfigDir())
			}
			if source == "" {
				source = "(defaults)"
			}

			var data []byte
			switch format {
			case "yaml":
				data, err = yaml.Marshal(cfg)
			case "toml":
				data, err = toml.Marshal(cfg)
			default:
				return errors.InvalidInput("format", format, "expected yaml or toml")
			}
			if err != nil {
				return errors.Internal(err, "failed to encode config")
			}

			fmt.Fprintf(out, "# Source: %s\n", source)
			fmt.Fprint(out, string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or toml")
	return cmd
}
