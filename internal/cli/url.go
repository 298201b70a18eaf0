package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/innkeeper/internal/gateway"
	"github.com/mesh-intelligence/innkeeper/internal/ledger"
)

func newURLCmd(opts *rootOptions) *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "url <api-id>",
		Short: "Print the invoke URLs of a deployed REST API",
		Long: `Print the invoke URLs of a REST API without calling AWS.

The stage, region and endpoint come from the ledger when the API was
provisioned by innkeeper, otherwise from the configuration and the AWS
environment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiID := args[0]

			target, recordedStage, err := urlTarget(opts, apiID)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("stage") {
				stage = recordedStage
			}

			primary, alt := gateway.InvokeURLs(apiID, stage, target)
			w := cmd.OutOrStdout()
			if opts.jsonMode {
				return writeJSON(w, map[string]string{"invoke_url": primary, "alt_invoke_url": alt})
			}
			fmt.Fprintln(w, primary)
			if alt != "" {
				fmt.Fprintln(w, alt)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "stage name (default: recorded or configured stage)")
	return cmd
}

// urlTarget finds where apiID lives and which stage it was deployed to.
func urlTarget(opts *rootOptions, apiID string) (gateway.Target, string, error) {
	l, err := opts.openLedger()
	if err != nil {
		return gateway.Target{}, "", err
	}
	defer l.Close()

	rec, err := l.FindByAPI(apiID)
	switch {
	case err == nil:
		return gateway.Target{Region: rec.Region, Endpoint: rec.Endpoint}, rec.Stage, nil
	case !errors.Is(err, ledger.ErrNotFound):
		return gateway.Target{}, "", sysError(err)
	}

	cfg, err := opts.appConfig()
	if err != nil {
		return gateway.Target{}, "", err
	}
	s, err := opts.awsSettings()
	if err != nil {
		return gateway.Target{}, "", err
	}
	return gatewayTarget(s), cfg.Blueprint.Stage, nil
}
