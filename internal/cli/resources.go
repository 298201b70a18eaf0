package cli

import (
	"github.com/spf13/cobra"
)

func newResourcesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resources <api-id>",
		Short: "List the resources of a REST API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiID := args[0]

			p, _, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			resources, err := p.Resources(cmd.Context(), apiID)
			if err != nil {
				return gatewayError(apiID, err)
			}

			if opts.jsonMode {
				return writeJSON(cmd.OutOrStdout(), resources)
			}
			return printResources(cmd.OutOrStdout(), resources)
		},
	}
}
