// Package cli implements the innkeeper command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/innkeeper/internal/gateway"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Log output formats.
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// rootOptions holds global flag values and the state shared by subcommands.
type rootOptions struct {
	configDir string
	dataDir   string
	envFile   string
	jsonMode  bool
	verbose   bool
	logFormat string

	// Set by PersistentPreRunE.
	logger      *slog.Logger
	cfg         *viper.Viper
	resolvedCfg string

	// newAPI builds the API Gateway client; tests substitute a fake.
	newAPI func(aws.Config) gateway.API
	now    func() time.Time
}

func defaultAPI(cfg aws.Config) gateway.API {
	return apigateway.NewFromConfig(cfg)
}

// NewRootCmd creates the top-level "innkeeper" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultAPI)
}

func newRootCmd(newAPI func(aws.Config) gateway.API) *cobra.Command {
	opts := &rootOptions{newAPI: newAPI, now: time.Now}

	root := &cobra.Command{
		Use:   "innkeeper",
		Short: "Provision the mock API Gateway front door of the hotel booking platform",
		Long: `innkeeper creates a REST API on API Gateway (LocalStack or AWS), wires every
configured resource to a MOCK integration, deploys it to a stage and prints
the invoke URLs. Each run is recorded locally so APIs can be listed and
torn down later.

Set DEBUG=1 to target LocalStack; otherwise AWS_REGION, AWS_ACCESS_KEY_ID
and AWS_SECRET_ACCESS_KEY are required. Variables may come from a .env file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/innkeeper)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory holding the ledger (default: $XDG_DATA_HOME/innkeeper)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default: ./.env when present)")
	root.PersistentFlags().BoolVar(&opts.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug detail")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", logFormatText, "log format: text or json")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newSetupCmd(opts))
	root.AddCommand(newResourcesCmd(opts))
	root.AddCommand(newURLCmd(opts))
	root.AddCommand(newAPIsCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newTeardownCmd(opts))

	return root
}

// Execute runs the root command and exits with the appropriate code.
// SIGINT and SIGTERM cancel the command context, which aborts a pending
// deployment wait.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	stop()
	os.Exit(exitCode(err))
}

// prepare configures logging and loads config.yaml.
func (o *rootOptions) prepare(cmd *cobra.Command) error {
	logger, err := newLogger(cmd.ErrOrStderr(), o.logFormat, o.verbose)
	if err != nil {
		return err
	}
	o.logger = logger

	configDir, err := resolveConfigDir(o.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	o.resolvedCfg = configDir

	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	o.cfg = v
	o.logger.Debug("loaded configuration", "config_dir", configDir, "config_file", v.ConfigFileUsed())
	return nil
}

func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	var h slog.Handler
	switch format {
	case logFormatText, "":
		h = slog.NewTextHandler(w, opts)
	case logFormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (valid: text, json)", format)
	}
	return slog.New(h), nil
}

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// sysError marks err as a system failure (exit code 2): storage, network
// or service errors the user cannot fix by changing arguments.
func sysError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitSysError, err: err}
}

// exitCode maps an error returned by a command to a process exit code.
// Unmarked errors are user errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
