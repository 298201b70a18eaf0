package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/innkeeper/internal/awsenv"
	"github.com/mesh-intelligence/innkeeper/internal/gateway"
	"github.com/mesh-intelligence/innkeeper/internal/ledger"
	"github.com/mesh-intelligence/innkeeper/internal/paths"
)

// appConfig decodes the configuration loaded by prepare.
func (o *rootOptions) appConfig() (appConfig, error) {
	return decodeConfig(o.cfg)
}

// resolveDataDir applies --data-dir > config.yaml data_dir >
// INNKEEPER_DATA_DIR > platform default.
func (o *rootOptions) resolveDataDir() (string, error) {
	cfg, err := o.appConfig()
	if err != nil {
		return "", err
	}
	dir, err := paths.ResolveDataDir(o.dataDir, cfg.DataDir)
	if err != nil {
		return "", sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	return dir, nil
}

// openLedger opens the ledger in the resolved data directory. The caller
// must Close it.
func (o *rootOptions) openLedger() (*ledger.Ledger, error) {
	dir, err := o.resolveDataDir()
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(dir)
	if err != nil {
		return nil, sysError(fmt.Errorf("open ledger: %w", err))
	}
	return l, nil
}

// awsSettings loads AWS settings from the environment and --env-file.
// Missing variables are user errors.
func (o *rootOptions) awsSettings() (awsenv.Settings, error) {
	s, err := awsenv.Load(o.envFile)
	if err != nil {
		return awsenv.Settings{}, err
	}
	o.logger.Debug("resolved aws settings", "aws", s)
	return s, nil
}

// provisioner builds a Provisioner for the given settings.
func (o *rootOptions) provisioner(ctx context.Context, s awsenv.Settings) (*gateway.Provisioner, error) {
	cfg, err := s.AWSConfig(ctx)
	if err != nil {
		return nil, sysError(err)
	}
	return gateway.New(o.newAPI(cfg), gateway.WithLogger(o.logger)), nil
}

// connect loads settings and returns a provisioner with its target.
func (o *rootOptions) connect(cmd *cobra.Command) (*gateway.Provisioner, gateway.Target, error) {
	s, err := o.awsSettings()
	if err != nil {
		return nil, gateway.Target{}, err
	}
	p, err := o.provisioner(cmd.Context(), s)
	if err != nil {
		return nil, gateway.Target{}, err
	}
	return p, gatewayTarget(s), nil
}

func gatewayTarget(s awsenv.Settings) gateway.Target {
	return gateway.Target{Region: s.Region, Endpoint: s.Endpoint}
}

// gatewayError classifies a provisioner error: unknown ids are user errors,
// everything else is a system error.
func gatewayError(apiID string, err error) error {
	if errors.Is(err, gateway.ErrNotFound) {
		return fmt.Errorf("api %q not found: %w", apiID, err)
	}
	return sysError(err)
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
