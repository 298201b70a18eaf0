// Package awsenv loads the AWS connection settings innkeeper provisions
// against, either a LocalStack emulator or a real AWS account.
//
// Settings come from the process environment after an optional .env file
// has been loaded. Variables already present in the environment win over
// the file.
package awsenv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// LocalStack defaults used when DEBUG=1.
const (
	DefaultLocalStackEndpoint = "http://localhost.localstack.cloud:4566"
	LocalStackRegion          = "us-east-1"
	LocalStackAccessKey       = "test"
	LocalStackSecretKey       = "test"
)

// ErrMissingVariable is returned when a required AWS variable is unset or
// empty outside LocalStack mode.
var ErrMissingVariable = errors.New("missing required AWS environment variable")

// Settings holds what is needed to build an AWS SDK client.
type Settings struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint overrides the SDK's endpoint resolution when non-empty.
	Endpoint string
	// LocalStack is true when the settings target the LocalStack emulator.
	LocalStack bool
}

// modeEnv selects between LocalStack and AWS.
type modeEnv struct {
	Debug              string `env:"DEBUG"`
	LocalStackEndpoint string `env:"LOCALSTACK_ENDPOINT"`
}

// awsEnv is the variable set required to reach real AWS.
type awsEnv struct {
	Region          string `env:"AWS_REGION,required,notEmpty"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID,required,notEmpty"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY,required,notEmpty"`
	SessionToken    string `env:"AWS_SESSION_TOKEN"`
	Endpoint        string `env:"AWS_ENDPOINT_URL"`
}

// Load reads dotenvPath (or ./.env when empty) and then resolves Settings
// from the environment. A missing ./.env is ignored; a missing explicit
// file is an error.
//
// DEBUG=1 selects LocalStack with fixed test credentials. Any other value
// requires AWS_REGION, AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY.
func Load(dotenvPath string) (Settings, error) {
	if err := loadDotEnv(dotenvPath); err != nil {
		return Settings{}, err
	}

	var mode modeEnv
	if err := env.Parse(&mode); err != nil {
		return Settings{}, fmt.Errorf("parse mode: %w", err)
	}

	if mode.Debug == "1" {
		endpoint := mode.LocalStackEndpoint
		if endpoint == "" {
			endpoint = DefaultLocalStackEndpoint
		}
		return Settings{
			Region:          LocalStackRegion,
			AccessKeyID:     LocalStackAccessKey,
			SecretAccessKey: LocalStackSecretKey,
			Endpoint:        endpoint,
			LocalStack:      true,
		}, nil
	}

	var vars awsEnv
	if err := env.Parse(&vars); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrMissingVariable, err)
	}

	return Settings{
		Region:          vars.Region,
		AccessKeyID:     vars.AccessKeyID,
		SecretAccessKey: vars.SecretAccessKey,
		SessionToken:    vars.SessionToken,
		Endpoint:        vars.Endpoint,
	}, nil
}

func loadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// AWSConfig builds an SDK configuration with static credentials and, when
// set, the endpoint override.
func (s Settings) AWSConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, s.SessionToken),
		),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if s.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(s.Endpoint)
	}
	return cfg, nil
}

// LogValue keeps credentials out of log output.
func (s Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("region", s.Region),
		slog.String("endpoint", s.Endpoint),
		slog.Bool("localstack", s.LocalStack),
		slog.String("access_key_id", maskKey(s.AccessKeyID)),
	)
}

// maskKey keeps the last four characters of a key id.
func maskKey(id string) string {
	if len(id) <= 4 {
		return "****"
	}
	return "****" + id[len(id)-4:]
}
