package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, config.yaml and
INNKEEPER_* environment overrides. The blueprint is validated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.appConfig()
			if err != nil {
				return err
			}
			if err := cfg.Blueprint.Validate(); err != nil {
				return fmt.Errorf("invalid blueprint: %w", err)
			}

			w := cmd.OutOrStdout()
			if opts.jsonMode {
				return writeJSON(w, cfg.Blueprint)
			}
			out, err := yaml.Marshal(configFile{DataDir: cfg.DataDir, Blueprint: toBlueprintFile(cfg.Blueprint)})
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = w.Write(out)
			return err
		},
	}
}
