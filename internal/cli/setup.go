package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/innkeeper/pkg/types"
)

// setupFlags maps setup flags to the config keys they override.
var setupFlags = map[string]string{
	"name":          cfgKeyName,
	"description":   cfgKeyDescription,
	"method":        cfgKeyMethod,
	"stage":         cfgKeyStage,
	"endpoint-type": cfgKeyEndpointType,
	"delay":         cfgKeyDeployDelay,
	"root-body":     cfgKeyRootBody,
}

func newSetupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create, wire and deploy the mock REST API",
		Long: `Setup creates a REST API from the configured blueprint, puts a method with a
MOCK integration on "/" and on every configured resource, waits for the
configuration to propagate, deploys to the stage and prints the invoke URLs.

Flags override the blueprint in config.yaml.

Example:
  DEBUG=1 innkeeper setup
  innkeeper setup --name rooms-api --stage dev --delay 2s`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for flag, key := range setupFlags {
				if err := opts.cfg.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return fmt.Errorf("bind --%s: %w", flag, err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, opts)
		},
	}

	bp := types.DefaultBlueprint()
	cmd.Flags().String("name", bp.Name, "REST API name")
	cmd.Flags().String("description", bp.Description, "REST API description")
	cmd.Flags().String("method", bp.Method, "HTTP method for resources without their own")
	cmd.Flags().String("stage", bp.Stage, "stage to deploy to")
	cmd.Flags().String("endpoint-type", bp.EndpointType, "endpoint type: REGIONAL, EDGE or PRIVATE")
	cmd.Flags().Duration("delay", bp.DeployDelay, "wait before deploying so the configuration propagates")
	cmd.Flags().String("root-body", bp.RootBody, "body returned by the root resource")
	return cmd
}

func runSetup(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.appConfig()
	if err != nil {
		return err
	}
	bp := cfg.Blueprint
	if err := bp.Validate(); err != nil {
		return fmt.Errorf("invalid blueprint: %w", err)
	}

	s, err := opts.awsSettings()
	if err != nil {
		return err
	}
	p, err := opts.provisioner(cmd.Context(), s)
	if err != nil {
		return err
	}
	l, err := opts.openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	opts.logger.Info("provisioning rest api", "name", bp.Name, "stage", bp.Stage, "resources", len(bp.Resources), "aws", s)

	target := gatewayTarget(s)
	d, setupErr := p.Setup(cmd.Context(), bp, target)

	// Record partial runs too so that teardown can find the API.
	if d.APIID != "" {
		if _, err := l.Append(types.NewRecord(d, s.Region, s.Endpoint)); err != nil {
			opts.logger.Warn("could not record deployment", "api_id", d.APIID, "error", err)
		}
	}
	if setupErr != nil {
		if d.APIID != "" {
			opts.logger.Error("setup failed; api left in place", "api_id", d.APIID)
		}
		return sysError(setupErr)
	}

	if opts.jsonMode {
		return writeJSON(cmd.OutOrStdout(), d)
	}
	return printDeployment(cmd.OutOrStdout(), d, bp)
}

// printDeployment writes a human summary of a deployment with curl hints
// for every resource.
func printDeployment(w io.Writer, d types.Deployment, bp types.Blueprint) error {
	fmt.Fprintf(w, "API:        %s (%s)\n", d.APIName, d.APIID)
	fmt.Fprintf(w, "Stage:      %s\n", d.Stage)
	fmt.Fprintf(w, "Deployment: %s\n", d.DeploymentID)
	fmt.Fprintln(w)
	if err := printResources(w, d.Resources); err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Invoke URL: %s\n", d.InvokeURL)

	base := strings.TrimSuffix(d.InvokeURL, "/")
	fmt.Fprintf(w, "Test root:  curl -X %s '%s/'\n", bp.EffectiveMethod(types.ResourceSpec{}), base)
	for _, r := range bp.Resources {
		fmt.Fprintf(w, "Test %s: curl -X %s '%s%s'\n", r.FullPath(), bp.EffectiveMethod(r), base, r.FullPath())
	}
	if d.AltInvokeURL != "" {
		fmt.Fprintf(w, "Alternative (if DNS issues): %s\n", d.AltInvokeURL)
	}
	return nil
}

// printResources writes a PATH/ID table.
func printResources(w io.Writer, resources []types.Resource) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tID")
	for _, r := range resources {
		fmt.Fprintf(tw, "%s\t%s\n", r.Path, r.ID)
	}
	return tw.Flush()
}
