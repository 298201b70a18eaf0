package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/innkeeper/internal/gateway"
	"github.com/mesh-intelligence/innkeeper/internal/ledger"
)

func newTeardownCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "teardown <api-id>",
		Short: "Delete a REST API and mark it deleted in the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiID := args[0]

			p, _, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			l, err := opts.openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			deleteErr := p.DeleteAPI(cmd.Context(), apiID)
			if deleteErr != nil && !errors.Is(deleteErr, gateway.ErrNotFound) {
				return sysError(deleteErr)
			}

			// An API already gone remotely is still closed out locally.
			if err := l.MarkDeleted(apiID, opts.now()); err != nil && !errors.Is(err, ledger.ErrNotFound) {
				return sysError(err)
			}
			if deleteErr != nil {
				return gatewayError(apiID, deleteErr)
			}

			if opts.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"deleted": apiID})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted REST API %s\n", apiID)
			return nil
		},
	}
}
