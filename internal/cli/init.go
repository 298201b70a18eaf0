package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file and the deployment ledger",
		Long: `Create the configuration directory with a default config.yaml (left
untouched when it already exists) and initialize the ledger in the data
directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}
}

func runInit(cmd *cobra.Command, opts *rootOptions) error {
	written, err := writeDefaultConfig(opts.resolvedCfg)
	if err != nil {
		return sysError(err)
	}
	configPath := filepath.Join(opts.resolvedCfg, configFileExt)
	if written {
		opts.logger.Info("wrote default configuration", "path", configPath)
		// Reload so data_dir and blueprint reflect the new file.
		v, err := loadConfig(opts.resolvedCfg)
		if err != nil {
			return err
		}
		opts.cfg = v
	}

	l, err := opts.openLedger()
	if err != nil {
		return err
	}
	ledgerPath := l.Path()
	if err := l.Close(); err != nil {
		return sysError(fmt.Errorf("close ledger: %w", err))
	}

	w := cmd.OutOrStdout()
	if opts.jsonMode {
		return writeJSON(w, map[string]string{"config": configPath, "ledger": ledgerPath})
	}
	fmt.Fprintln(w, "innkeeper initialized successfully")
	fmt.Fprintln(w, "  config:", configPath)
	fmt.Fprintln(w, "  ledger:", ledgerPath)
	return nil
}
