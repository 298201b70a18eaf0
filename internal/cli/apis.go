package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newAPIsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apis",
		Short: "List the REST APIs in the account or emulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			apis, err := p.ListAPIs(cmd.Context())
			if err != nil {
				return sysError(err)
			}

			if opts.jsonMode {
				return writeJSON(cmd.OutOrStdout(), apis)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCREATED")
			for _, a := range apis {
				created := "-"
				if a.CreatedAt != nil {
					created = a.CreatedAt.Local().Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Name, created)
			}
			return tw.Flush()
		},
	}
}
