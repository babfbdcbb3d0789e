package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect FixPredict configuration",
		Long: `Configuration hierarchy (highest to lowest priority):
1. Environment variables (FIXPREDICT_*, also read from .env)
2. Config file (--config, default ./fixpredict.yaml)
3. Defaults`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfgFile != "" {
				fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", a.cfgFile)
			}
			yamlData, err := yaml.Marshal(a.cfg.Masked())
			if err != nil {
				return fmt.Errorf("error marshaling config: %w", err)
			}
			_, err = a.out.Write(yamlData)
			return err
		},
	}

	cmd.AddCommand(show)
	return cmd
}
