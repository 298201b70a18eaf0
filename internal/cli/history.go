package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded provisioning runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			records, err := l.List(all)
			if err != nil {
				return sysError(err)
			}

			if opts.jsonMode {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No deployments recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "API ID\tNAME\tSTAGE\tCREATED\tSTATUS\tINVOKE URL")
			for _, r := range records {
				status := "live"
				if r.Deleted() {
					status = "deleted"
				} else if r.DeploymentID == "" {
					status = "incomplete"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.APIID, r.APIName, r.Stage, r.CreatedAt.Local().Format(time.DateTime), status, r.InvokeURL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include torn down APIs")
	return cmd
}
