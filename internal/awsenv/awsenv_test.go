package awsenv

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"DEBUG",
	"LOCALSTACK_ENDPOINT",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
	"AWS_ENDPOINT_URL",
}

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_LocalStack(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "1")

	s, err := Load("")
	require.NoError(t, err)
	assert.True(t, s.LocalStack)
	assert.Equal(t, LocalStackRegion, s.Region)
	assert.Equal(t, "test", s.AccessKeyID)
	assert.Equal(t, "test", s.SecretAccessKey)
	assert.Equal(t, DefaultLocalStackEndpoint, s.Endpoint)
}

func TestLoad_LocalStackCustomEndpoint(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "1")
	t.Setenv("LOCALSTACK_ENDPOINT", "http://localhost:4566")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566", s.Endpoint)
}

func TestLoad_DebugOtherThanOneMeansAWS(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "true")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrMissingVariable)
}

func TestLoad_AWS(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE1234")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	s, err := Load("")
	require.NoError(t, err)
	assert.False(t, s.LocalStack)
	assert.Equal(t, "eu-west-1", s.Region)
	assert.Equal(t, "AKIAEXAMPLE1234", s.AccessKeyID)
	assert.Equal(t, "secret", s.SecretAccessKey)
	assert.Empty(t, s.Endpoint, "unset endpoint must stay empty")
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, missing := range []string{"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"} {
		t.Run(missing, func(t *testing.T) {
			clearEnv(t)
			for _, k := range []string{"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"} {
				if k != missing {
					t.Setenv(k, "value")
				}
			}

			_, err := Load("")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingVariable))
			assert.Contains(t, err.Error(), missing)
		})
	}
}

func TestLoad_EmptyRequiredIsMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrMissingVariable)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "local.env")
	content := "AWS_REGION=ap-south-1\nAWS_ACCESS_KEY_ID=fromfile\nAWS_SECRET_ACCESS_KEY=filesecret\nAWS_ENDPOINT_URL=http://localhost:4566\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ap-south-1", s.Region)
	assert.Equal(t, "fromfile", s.AccessKeyID)
	assert.Equal(t, "http://localhost:4566", s.Endpoint)
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "us-west-2")
	path := filepath.Join(t.TempDir(), "local.env")
	content := "AWS_REGION=ap-south-1\nAWS_ACCESS_KEY_ID=id\nAWS_SECRET_ACCESS_KEY=secret\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", s.Region)
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load env file")
}

func TestSettings_AWSConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	s := Settings{
		Region:          LocalStackRegion,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Endpoint:        "http://localhost:4566",
	}

	cfg, err := s.AWSConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LocalStackRegion, cfg.Region)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *cfg.BaseEndpoint)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
	assert.Equal(t, "test", creds.SecretAccessKey)
}

func TestSettings_AWSConfigWithoutEndpoint(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	cfg, err := Settings{Region: "eu-central-1", AccessKeyID: "a", SecretAccessKey: "b"}.AWSConfig(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cfg.BaseEndpoint)
}

func TestSettings_LogValueHidesSecrets(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("settings", "aws", Settings{
		Region:          "us-east-1",
		AccessKeyID:     "AKIAEXAMPLE1234",
		SecretAccessKey: "super-secret",
		SessionToken:    "token-value",
	})

	out := buf.String()
	assert.NotContains(t, out, "super-secret")
	assert.NotContains(t, out, "token-value")
	assert.NotContains(t, out, "AKIAEXAMPLE1234")
	assert.Contains(t, out, "****1234")
	assert.Contains(t, out, "us-east-1")
}
